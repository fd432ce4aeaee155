package battle

import (
	"fmt"

	"go.uber.org/zap"
)

// StatusKind enumerates status effects.
type StatusKind string

const (
	StatusStun         StatusKind = "stun"
	StatusPoison       StatusKind = "poison"
	StatusBleed        StatusKind = "bleed"
	StatusRegeneration StatusKind = "regeneration"
	StatusSlow         StatusKind = "slow"
)

// StatusSpec describes a status an action or hazard applies on hit.
type StatusSpec struct {
	Kind  StatusKind `json:"kind" yaml:"kind"`
	Turns int        `json:"turns" yaml:"turns"`
	// Magnitude is damage/heal per tick for poison, bleed and regeneration,
	// and the length multiplier for slow.
	Magnitude float64 `json:"magnitude,omitempty" yaml:"magnitude,omitempty"`
}

// Status is an active status on an actor.
type Status struct {
	Kind      StatusKind
	Turns     int
	Magnitude float64
}

// TickResult reports what a damage-over-time/regeneration tick did.
type TickResult struct {
	Damage   int
	Heal     int
	Messages []string
}

// EffectEngine applies status mechanics. The orchestrator only asks it
// whether an actor may act and how far its timeline should move.
type EffectEngine interface {
	CanAct(a Actor) bool
	// StunAdvance is how far a stunned actor's timeline moves for the
	// skipped turn.
	StunAdvance(a Actor) float64
	// LengthMultiplier scales the actor's next action length. Reading it
	// consumes a pending speed penalty.
	LengthMultiplier(a Actor) float64
	Apply(target Actor, spec StatusSpec)
	Tick(a Actor) TickResult
}

// StatusEffects is the default EffectEngine. Statuses live in each actor's
// CombatFlags, so one engine can serve any number of battles.
type StatusEffects struct {
	logger *zap.Logger
}

func NewStatusEffects(logger *zap.Logger) *StatusEffects {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusEffects{logger: logger}
}

// CanAct returns false while a stun is active and spends one stun turn.
func (e *StatusEffects) CanAct(a Actor) bool {
	f := a.Flags()
	for i := range f.Statuses {
		s := &f.Statuses[i]
		if s.Kind == StatusStun && s.Turns > 0 {
			s.Turns--
			f.Statuses = pruneExpired(f.Statuses)
			return false
		}
	}
	return true
}

func (e *StatusEffects) StunAdvance(a Actor) float64 {
	return a.BaseSpeed()
}

func (e *StatusEffects) LengthMultiplier(a Actor) float64 {
	f := a.Flags()
	m := 1.0
	if f.SpeedPenalty {
		m *= 2.0
		f.SpeedPenalty = false
	}
	for _, s := range f.Statuses {
		if s.Kind == StatusSlow && s.Turns > 0 && s.Magnitude > 0 {
			m *= s.Magnitude
		}
	}
	return m
}

// Apply adds a status. Reapplying a kind refreshes its duration to the
// longer of the two and keeps the stronger magnitude.
func (e *StatusEffects) Apply(target Actor, spec StatusSpec) {
	if spec.Turns <= 0 || !target.IsAlive() {
		return
	}
	f := target.Flags()
	for i := range f.Statuses {
		s := &f.Statuses[i]
		if s.Kind != spec.Kind {
			continue
		}
		if spec.Turns > s.Turns {
			s.Turns = spec.Turns
		}
		if spec.Magnitude > s.Magnitude {
			s.Magnitude = spec.Magnitude
		}
		return
	}
	f.Statuses = append(f.Statuses, Status{Kind: spec.Kind, Turns: spec.Turns, Magnitude: spec.Magnitude})
	e.logger.Debug("status applied",
		zap.String("target", target.Name()),
		zap.String("kind", string(spec.Kind)),
		zap.Int("turns", spec.Turns))
}

// Tick applies one round of poison, bleed, regeneration and slow decay.
// Stun is consumed by CanAct instead.
func (e *StatusEffects) Tick(a Actor) TickResult {
	var res TickResult
	if !a.IsAlive() {
		return res
	}
	f := a.Flags()
	for i := range f.Statuses {
		s := &f.Statuses[i]
		if s.Turns <= 0 {
			continue
		}
		amount := int(s.Magnitude)
		switch s.Kind {
		case StatusPoison, StatusBleed:
			if amount > 0 {
				res.Damage += amount
				res.Messages = append(res.Messages, fmt.Sprintf("[%s] takes %d %s damage.", a.Name(), amount, s.Kind))
			}
			s.Turns--
		case StatusRegeneration:
			if amount > 0 {
				res.Heal += amount
				res.Messages = append(res.Messages, fmt.Sprintf("[%s] regenerates %d health.", a.Name(), amount))
			}
			s.Turns--
		case StatusSlow:
			s.Turns--
		}
	}
	f.Statuses = pruneExpired(f.Statuses)
	if res.Damage != 0 || res.Heal != 0 {
		a.SetHealth(a.CurrentHealth() - res.Damage + res.Heal)
	}
	return res
}

func pruneExpired(list []Status) []Status {
	out := list[:0]
	for _, s := range list {
		if s.Turns > 0 {
			out = append(out, s)
		}
	}
	return out
}
