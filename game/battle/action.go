package battle

import "fmt"

// ActionKind classifies what an action does when it resolves.
type ActionKind int

const (
	ActionAttack ActionKind = iota
	ActionHeal
	ActionEnvironmental
)

func (k ActionKind) String() string {
	switch k {
	case ActionAttack:
		return "attack"
	case ActionHeal:
		return "heal"
	case ActionEnvironmental:
		return "environmental"
	}
	return "unknown"
}

func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ActionKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "attack":
		*k = ActionAttack
	case "heal":
		*k = ActionHeal
	case "environmental":
		*k = ActionEnvironmental
	default:
		return fmt.Errorf("battle: unknown action kind %q", string(b))
	}
	return nil
}

// Action is a move an actor can perform.
type Action struct {
	Name string     `json:"name" yaml:"name"`
	Kind ActionKind `json:"kind" yaml:"kind"`
	// Length scales how long the action occupies the actor's timeline.
	// 0 means 1.0.
	Length float64 `json:"length,omitempty" yaml:"length,omitempty"`
	// DamageMultiplier scales the formula result. 0 means 1.0.
	DamageMultiplier float64 `json:"damage_multiplier,omitempty" yaml:"damage_multiplier,omitempty"`
	// Formula is a damage expression over a.* (attacker) and b.* (defender)
	// stats. Empty uses the default strength-minus-armor formula.
	Formula    string      `json:"formula,omitempty" yaml:"formula,omitempty"`
	HealAmount int         `json:"heal_amount,omitempty" yaml:"heal_amount,omitempty"`
	Status     *StatusSpec `json:"status,omitempty" yaml:"status,omitempty"`

	// FixedDamage and Description are used by environmental hazards, whose
	// damage does not come from a roll.
	FixedDamage int    `json:"fixed_damage,omitempty" yaml:"fixed_damage,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// LengthMultiplier returns the effective action length.
func (a Action) LengthMultiplier() float64 {
	if a.Length <= 0 {
		return 1.0
	}
	return a.Length
}

func (a Action) damageMultiplier() float64 {
	if a.DamageMultiplier <= 0 {
		return 1.0
	}
	return a.DamageMultiplier
}

// BasicAttack is the fallback action for combatants with no combo sequence.
func BasicAttack() Action {
	return Action{Name: "Strike", Kind: ActionAttack}
}

// HazardAction converts an environment effect into an action.
func HazardAction(eff EnvironmentEffect) Action {
	desc := eff.Description
	if desc == "" {
		desc = eff.Name
	}
	return Action{
		Name:        eff.Name,
		Kind:        ActionEnvironmental,
		Status:      eff.Status,
		FixedDamage: eff.Damage,
		Description: desc,
	}
}

// ComboMultiplier returns the damage bonus for the given 1-based combo step:
// +25% per step after the first, capped at 2x.
func ComboMultiplier(step int) float64 {
	if step <= 1 {
		return 1.0
	}
	m := 1.0 + 0.25*float64(step-1)
	if m > 2.0 {
		m = 2.0
	}
	return m
}
