package combat

import (
	"sync"

	"github.com/kasuganosora/dungeonfighter/game/narrative"
)

// LineKind classifies an output line.
type LineKind string

const (
	LineCombat    LineKind = "combat"
	LineNarrative LineKind = "narrative"
	LineStatus    LineKind = "status"
	LineSummary   LineKind = "summary"
)

// Line is one line of battle output.
type Line struct {
	Seq  int      `json:"seq"`
	Kind LineKind `json:"kind"`
	Text string   `json:"text"`
	// Trigger is set on narrative lines.
	Trigger narrative.Kind `json:"trigger,omitempty"`
	Time    float64        `json:"time"`
	Turn    int            `json:"turn"`
}

// Sink receives output lines synchronously, in order.
type Sink interface {
	Emit(l Line)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(l Line)

func (f SinkFunc) Emit(l Line) { f(l) }

// MultiSink fans a line out to every sink.
type MultiSink []Sink

func (m MultiSink) Emit(l Line) {
	for _, s := range m {
		if s != nil {
			s.Emit(l)
		}
	}
}

// Buffer collects lines in memory. It is safe to read while a battle on
// another goroutine is writing.
type Buffer struct {
	mu    sync.Mutex
	lines []Line
}

func (b *Buffer) Emit(l Line) {
	b.mu.Lock()
	b.lines = append(b.lines, l)
	b.mu.Unlock()
}

// Lines returns a copy of the collected lines.
func (b *Buffer) Lines() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Line, len(b.lines))
	copy(out, b.lines)
	return out
}

// Texts returns the text of every line of the given kind, or of all lines
// when kind is empty.
func (b *Buffer) Texts(kind LineKind) []string {
	var out []string
	for _, l := range b.Lines() {
		if kind == "" || l.Kind == kind {
			out = append(out, l.Text)
		}
	}
	return out
}

type discard struct{}

func (discard) Emit(Line) {}
