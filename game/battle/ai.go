package battle

import (
	"math/rand"

	"github.com/kasuganosora/dungeonfighter/game/ai"
)

// ActionSelector chooses what an actor does on its turn. ok=false means the
// actor declines to act this turn.
type ActionSelector interface {
	Select(actor, target Actor) (action Action, ok bool)
}

// DefaultSelector picks the next combo action for players, runs a
// heal-or-attack behavior tree for enemies, and rolls the act chance for
// environments.
type DefaultSelector struct {
	RNG  *rand.Rand
	Tree *ai.BehaviorTree
	// HealBelow is the health ratio under which enemies try to heal.
	HealBelow float64
}

func NewDefaultSelector(rng *rand.Rand) *DefaultSelector {
	s := &DefaultSelector{RNG: rng, HealBelow: 0.3}
	s.Tree = EnemyTree(s.HealBelow)
	return s
}

// EnemyTree heals when below healBelow and a heal is available, otherwise
// continues the combo sequence.
func EnemyTree(healBelow float64) *ai.BehaviorTree {
	return &ai.BehaviorTree{Root: &ai.Selector{Children: []ai.Node{
		&ai.Sequence{Children: []ai.Node{ai.SelfBelow(healBelow), &ai.PickTagged{Tag: "heal"}}},
		&ai.PickTagged{Tag: "attack"},
	}}}
}

func (s *DefaultSelector) Select(actor, target Actor) (Action, bool) {
	switch actor.Side() {
	case SideEnvironment:
		env, ok := actor.(*Environment)
		if !ok {
			return Action{}, false
		}
		return s.selectEnvironment(env)
	case SideEnemy:
		if c, ok := actor.(Combatant); ok {
			return s.selectEnemy(c, target)
		}
	case SidePlayer:
		if c, ok := actor.(Combatant); ok {
			return NextComboAction(c), true
		}
	}
	return Action{}, false
}

// NextComboAction returns the action at the combatant's current combo step.
func NextComboAction(c Combatant) Action {
	combo := c.ComboActions()
	if len(combo) == 0 {
		return BasicAttack()
	}
	return combo[c.ComboStep()%len(combo)]
}

func (s *DefaultSelector) selectEnemy(c Combatant, target Actor) (Action, bool) {
	next := NextComboAction(c)
	heals := c.HealActions()
	if s.Tree == nil || len(heals) == 0 {
		return next, true
	}

	opts := []ai.Option{{Index: -1, Name: next.Name, Tag: "attack", Weight: 1}}
	for i, h := range heals {
		opts = append(opts, ai.Option{Index: i, Name: h.Name, Tag: "heal", Weight: 1})
	}
	ctx := ai.NewContext(s.RNG, opts)
	ctx.SelfHealth, ctx.SelfMaxHealth = c.CurrentHealth(), c.MaxHealth()
	if target != nil {
		ctx.FoeHealth, ctx.FoeMaxHealth = target.CurrentHealth(), target.MaxHealth()
	}
	if s.Tree.Tick(ctx) != ai.StatusSuccess || ctx.Chosen < 0 {
		return next, true
	}
	chosen := ctx.Options[ctx.Chosen]
	if chosen.Tag == "heal" {
		return heals[chosen.Index], true
	}
	return next, true
}

func (s *DefaultSelector) selectEnvironment(env *Environment) (Action, bool) {
	effects := env.Effects()
	if len(effects) == 0 || s.RNG == nil {
		return Action{}, false
	}
	if s.RNG.Float64() >= env.ActChance() {
		return Action{}, false
	}
	eff := effects[s.RNG.Intn(len(effects))]
	return HazardAction(eff), true
}
