package battle

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Attack bundles everything needed to resolve one action.
type Attack struct {
	Attacker Actor
	Defender Actor
	Action   Action
	// ComboStep is the 1-based position of Action in the attacker's combo
	// sequence.
	ComboStep int
}

// Outcome is what a DamageModel decides for an attack. It never touches
// actor health; the orchestrator applies it.
type Outcome struct {
	Roll         int
	Success      bool
	Critical     bool
	CriticalMiss bool
	// Combo is set when the roll reached the combo threshold.
	Combo  bool
	Damage int
	Heal   int
}

// DamageModel turns an attack and a roll into an outcome.
type DamageModel interface {
	Resolve(atk *Attack) Outcome
}

// FormulaScript evaluates formulas the built-in parser rejects.
// Implemented by script.Sandbox.
type FormulaScript interface {
	EvalNumber(ctx context.Context, src string, vars map[string]float64) (float64, error)
}

// DiceDamageModel resolves attacks with a d20.
type DiceDamageModel struct {
	RNG        *rand.Rand
	Thresholds *ThresholdTable
	Script     FormulaScript // optional
	Logger     *zap.Logger
	// ScriptTimeout bounds one scripted formula evaluation.
	ScriptTimeout time.Duration

	// BeforeResolve may adjust the attack before the roll.
	BeforeResolve func(atk *Attack)
	// AfterResolve may adjust the outcome before it is returned.
	AfterResolve func(atk *Attack, out *Outcome)
}

// NewDiceDamageModel creates a model with default thresholds.
func NewDiceDamageModel(rng *rand.Rand, logger *zap.Logger) *DiceDamageModel {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiceDamageModel{
		RNG:        rng,
		Thresholds: NewThresholdTable(DefaultThresholds),
		Logger:     logger,
	}
}

// RollD20 returns a value in [1, 20].
func (m *DiceDamageModel) RollD20() int {
	return m.RNG.Intn(20) + 1
}

// Resolve runs the full resolution pipeline.
func (m *DiceDamageModel) Resolve(atk *Attack) Outcome {
	// ① Hook: before_resolve
	if m.BeforeResolve != nil {
		m.BeforeResolve(atk)
	}

	th := DefaultThresholds
	if m.Thresholds != nil {
		th = m.Thresholds.Resolve(atk.Attacker.Name())
	}

	// ② Roll.
	out := Outcome{Roll: m.RollD20()}

	switch atk.Action.Kind {
	case ActionHeal:
		m.resolveHeal(atk, th, &out)
	default:
		m.resolveAttack(atk, th, &out)
	}

	// ③ Hook: after_resolve
	if m.AfterResolve != nil {
		m.AfterResolve(atk, &out)
	}
	if out.Damage < 0 {
		out.Damage = 0
	}
	return out
}

func (m *DiceDamageModel) resolveHeal(atk *Attack, th Thresholds, out *Outcome) {
	if out.Roll < th.Hit {
		return
	}
	out.Success = true
	out.Critical = out.Roll >= th.CriticalHit
	amount := atk.Action.HealAmount
	if amount <= 0 {
		amount = int(m.baseDamage(atk))
	}
	if out.Critical {
		amount *= 2
	}
	missing := atk.Attacker.MaxHealth() - atk.Attacker.CurrentHealth()
	if amount > missing {
		amount = missing
	}
	if amount < 0 {
		amount = 0
	}
	out.Heal = amount
}

func (m *DiceDamageModel) resolveAttack(atk *Attack, th Thresholds, out *Outcome) {
	if out.Roll <= th.CriticalMiss {
		out.CriticalMiss = true
		return
	}
	if out.Roll < th.Hit {
		return
	}
	out.Success = true
	out.Critical = out.Roll >= th.CriticalHit
	out.Combo = out.Roll >= th.Combo

	dmg := m.baseDamage(atk) * atk.Action.damageMultiplier()
	if out.Combo {
		dmg *= ComboMultiplier(atk.ComboStep)
	}
	if out.Critical {
		dmg *= 2
	}
	out.Damage = int(math.Max(1, math.Round(dmg)))
}

// baseDamage evaluates the action formula. Formulas the parser rejects go to
// the script sandbox when one is configured; any failure falls back to the
// default strength-minus-armor formula.
func (m *DiceDamageModel) baseDamage(atk *Attack) float64 {
	a, b := StatsOf(atk.Attacker), StatsOf(atk.Defender)
	if atk.Action.Formula != "" {
		v, err := EvalFormula(atk.Action.Formula, a, b)
		if err == nil {
			return v
		}
		if errors.Is(err, ErrNeedsScript) && m.Script != nil {
			v, err = m.evalScript(atk.Action.Formula, a, b)
			if err == nil {
				return v
			}
		}
		m.Logger.Warn("damage formula failed, using default",
			zap.String("action", atk.Action.Name),
			zap.String("formula", atk.Action.Formula),
			zap.Error(err))
	}
	return defaultDamage(a, b)
}

func (m *DiceDamageModel) evalScript(src string, a, b *FormulaStats) (float64, error) {
	timeout := m.ScriptTimeout
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return m.Script.EvalNumber(ctx, src, FormulaVars(a, b))
}

func defaultDamage(a, b *FormulaStats) float64 {
	return float64(a.Strength) - float64(b.Armor)/2
}

// FormulaVars flattens attacker and defender stats into script variables
// named a_str, b_armor and so on.
func FormulaVars(a, b *FormulaStats) map[string]float64 {
	vars := make(map[string]float64, 16)
	for prefix, s := range map[string]*FormulaStats{"a": a, "b": b} {
		vars[prefix+"_str"] = float64(s.Strength)
		vars[prefix+"_agi"] = float64(s.Agility)
		vars[prefix+"_tech"] = float64(s.Technique)
		vars[prefix+"_int"] = float64(s.Intelligence)
		vars[prefix+"_armor"] = float64(s.Armor)
		vars[prefix+"_level"] = float64(s.Level)
		vars[prefix+"_hp"] = float64(s.Health)
		vars[prefix+"_mhp"] = float64(s.MaxHealth)
	}
	return vars
}
