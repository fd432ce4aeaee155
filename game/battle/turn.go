package battle

import (
	"errors"
	"math"
)

var (
	ErrDuplicateEntity = errors.New("battle: entity already registered")
	ErrUnknownEntity   = errors.New("battle: entity not registered")
)

// NoEntities is returned by GetNextReadyTime when nothing is registered.
const NoEntities = -1.0

// Timeline decides who acts next on the battle clock.
type Timeline interface {
	AddEntity(a Actor, baseSpeed float64) error
	SetEntityActionTime(a Actor, t float64) error
	// GetNextEntityToAct returns the ready actor with the smallest ready
	// time, or nil if nobody is ready.
	GetNextEntityToAct() Actor
	GetNextReadyTime() float64
	AdvanceTime(delta float64)
	// ExecuteAction consumes the actor's turn for an action of the given
	// length multiplier.
	ExecuteAction(a Actor, length float64) error
	AdvanceEntityTurn(a Actor, amount float64) error
	CurrentTime() float64
}

type timelineEntry struct {
	actor     Actor
	baseSpeed float64
	nextReady float64
}

// ActionSpeedScheduler is the default Timeline. Each actor's next ready time
// advances by baseSpeed * length whenever it acts, so a lower base speed
// means more frequent turns. Ties go to the actor registered first.
//
// Not safe for concurrent use: one scheduler belongs to one battle.
type ActionSpeedScheduler struct {
	now     float64
	entries []*timelineEntry
	index   map[Actor]int
}

func NewActionSpeedScheduler() *ActionSpeedScheduler {
	return &ActionSpeedScheduler{index: make(map[Actor]int)}
}

func (s *ActionSpeedScheduler) entry(a Actor) (*timelineEntry, error) {
	i, ok := s.index[a]
	if !ok {
		return nil, ErrUnknownEntity
	}
	return s.entries[i], nil
}

// AddEntity registers a with nextReadyTime = CurrentTime.
func (s *ActionSpeedScheduler) AddEntity(a Actor, baseSpeed float64) error {
	if _, ok := s.index[a]; ok {
		return ErrDuplicateEntity
	}
	if baseSpeed < 0 || math.IsNaN(baseSpeed) {
		baseSpeed = 0
	}
	s.index[a] = len(s.entries)
	s.entries = append(s.entries, &timelineEntry{actor: a, baseSpeed: baseSpeed, nextReady: s.now})
	return nil
}

// SetEntityActionTime forces a's next ready time, e.g. to grant first strike.
func (s *ActionSpeedScheduler) SetEntityActionTime(a Actor, t float64) error {
	e, err := s.entry(a)
	if err != nil {
		return err
	}
	e.nextReady = t
	return nil
}

func (s *ActionSpeedScheduler) GetNextEntityToAct() Actor {
	var best *timelineEntry
	for _, e := range s.entries {
		if e.nextReady > s.now {
			continue
		}
		if best == nil || e.nextReady < best.nextReady {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	return best.actor
}

func (s *ActionSpeedScheduler) GetNextReadyTime() float64 {
	if len(s.entries) == 0 {
		return NoEntities
	}
	next := math.Inf(1)
	for _, e := range s.entries {
		if e.nextReady < next {
			next = e.nextReady
		}
	}
	return next
}

// AdvanceTime moves the battle clock forward. Non-positive deltas are ignored
// so the clock never runs backwards.
func (s *ActionSpeedScheduler) AdvanceTime(delta float64) {
	if delta > 0 && !math.IsInf(delta, 0) {
		s.now += delta
	}
}

func (s *ActionSpeedScheduler) ExecuteAction(a Actor, length float64) error {
	e, err := s.entry(a)
	if err != nil {
		return err
	}
	if length < 0 || math.IsNaN(length) {
		length = 0
	}
	e.nextReady = math.Max(s.now, e.nextReady) + e.baseSpeed*length
	return nil
}

// AdvanceEntityTurn pushes a's next ready time forward by amount, measured
// from whichever is later of the clock and its current ready time.
func (s *ActionSpeedScheduler) AdvanceEntityTurn(a Actor, amount float64) error {
	e, err := s.entry(a)
	if err != nil {
		return err
	}
	if amount < 0 || math.IsNaN(amount) {
		amount = 0
	}
	e.nextReady = math.Max(s.now, e.nextReady) + amount
	return nil
}

func (s *ActionSpeedScheduler) CurrentTime() float64 { return s.now }

// NextReadyTime returns a's scheduled ready time.
func (s *ActionSpeedScheduler) NextReadyTime(a Actor) (float64, bool) {
	e, err := s.entry(a)
	if err != nil {
		return 0, false
	}
	return e.nextReady, true
}

// BaseSpeed returns the speed a was registered with.
func (s *ActionSpeedScheduler) BaseSpeed(a Actor) (float64, bool) {
	e, err := s.entry(a)
	if err != nil {
		return 0, false
	}
	return e.baseSpeed, true
}

// Entities returns registered actors in registration order.
func (s *ActionSpeedScheduler) Entities() []Actor {
	out := make([]Actor, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.actor
	}
	return out
}
