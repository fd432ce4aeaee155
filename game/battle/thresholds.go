package battle

import "errors"

// ErrThresholdLocked is returned when an override is set twice in one battle.
var ErrThresholdLocked = errors.New("battle: threshold override already set")

// Thresholds are the d20 roll boundaries used to resolve an action.
type Thresholds struct {
	CriticalHit  int `json:"critical_hit" yaml:"critical_hit"`
	CriticalMiss int `json:"critical_miss" yaml:"critical_miss"`
	Combo        int `json:"combo" yaml:"combo"`
	Hit          int `json:"hit" yaml:"hit"`
}

// DefaultThresholds apply to every actor without an override.
var DefaultThresholds = Thresholds{CriticalHit: 20, CriticalMiss: 1, Combo: 14, Hit: 6}

// ThresholdModifiers holds nullable per-actor overrides. A nil field falls
// back to the table defaults.
type ThresholdModifiers struct {
	CriticalHit  *int
	CriticalMiss *int
	Combo        *int
	Hit          *int
}

// ThresholdKind selects one of the four thresholds.
type ThresholdKind int

const (
	ThresholdCriticalHit ThresholdKind = iota
	ThresholdCriticalMiss
	ThresholdCombo
	ThresholdHit
)

func (m *ThresholdModifiers) field(k ThresholdKind) **int {
	switch k {
	case ThresholdCriticalHit:
		return &m.CriticalHit
	case ThresholdCriticalMiss:
		return &m.CriticalMiss
	case ThresholdCombo:
		return &m.Combo
	default:
		return &m.Hit
	}
}

// ThresholdTable resolves thresholds per actor. Modifiers are created on the
// first override for an actor and dropped by Reset.
type ThresholdTable struct {
	defaults  Thresholds
	modifiers map[string]*ThresholdModifiers
}

// NewThresholdTable creates a table. A zero defaults value means DefaultThresholds.
func NewThresholdTable(defaults Thresholds) *ThresholdTable {
	if defaults == (Thresholds{}) {
		defaults = DefaultThresholds
	}
	return &ThresholdTable{defaults: defaults}
}

// Override sets one threshold for actor. Once set, a value cannot be changed
// until Reset.
func (t *ThresholdTable) Override(actor string, k ThresholdKind, v int) error {
	if t.modifiers == nil {
		t.modifiers = make(map[string]*ThresholdModifiers)
	}
	m, ok := t.modifiers[actor]
	if !ok {
		m = &ThresholdModifiers{}
		t.modifiers[actor] = m
	}
	f := m.field(k)
	if *f != nil {
		return ErrThresholdLocked
	}
	val := v
	*f = &val
	return nil
}

// Modifiers returns the override record for actor, or nil if none exists.
func (t *ThresholdTable) Modifiers(actor string) *ThresholdModifiers {
	if t.modifiers == nil {
		return nil
	}
	return t.modifiers[actor]
}

// Reset removes all overrides for actor.
func (t *ThresholdTable) Reset(actor string) {
	delete(t.modifiers, actor)
}

// Resolve returns the effective thresholds for actor.
func (t *ThresholdTable) Resolve(actor string) Thresholds {
	out := t.defaults
	m := t.Modifiers(actor)
	if m == nil {
		return out
	}
	if m.CriticalHit != nil {
		out.CriticalHit = *m.CriticalHit
	}
	if m.CriticalMiss != nil {
		out.CriticalMiss = *m.CriticalMiss
	}
	if m.Combo != nil {
		out.Combo = *m.Combo
	}
	if m.Hit != nil {
		out.Hit = *m.Hit
	}
	return out
}
