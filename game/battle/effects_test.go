package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusEffects_StunBlocksForTurns(t *testing.T) {
	fx := NewStatusEffects(nil)
	p := newTestPlayer("Hero", 2)
	fx.Apply(p, StatusSpec{Kind: StatusStun, Turns: 2})

	assert.True(t, p.Flags().Stunned())
	assert.False(t, fx.CanAct(p))
	assert.False(t, fx.CanAct(p))
	assert.True(t, fx.CanAct(p))
	assert.False(t, p.Flags().Stunned())
	assert.Empty(t, p.Flags().Statuses)
}

func TestStatusEffects_StunAdvanceIsBaseSpeed(t *testing.T) {
	fx := NewStatusEffects(nil)
	e := newTestEnemy("Orc", 7.5)
	assert.Equal(t, 7.5, fx.StunAdvance(e))
}

func TestStatusEffects_SpeedPenaltyConsumedOnce(t *testing.T) {
	fx := NewStatusEffects(nil)
	p := newTestPlayer("Hero", 2)
	p.Flags().SpeedPenalty = true

	assert.Equal(t, 2.0, fx.LengthMultiplier(p))
	assert.Equal(t, 1.0, fx.LengthMultiplier(p))
}

func TestStatusEffects_SlowStacksWithPenalty(t *testing.T) {
	fx := NewStatusEffects(nil)
	p := newTestPlayer("Hero", 2)
	fx.Apply(p, StatusSpec{Kind: StatusSlow, Turns: 1, Magnitude: 1.5})
	p.Flags().SpeedPenalty = true

	assert.Equal(t, 3.0, fx.LengthMultiplier(p))
	fx.Tick(p)
	assert.Equal(t, 1.0, fx.LengthMultiplier(p))
}

func TestStatusEffects_PoisonTick(t *testing.T) {
	fx := NewStatusEffects(nil)
	e := newTestEnemy("Orc", 2)
	fx.Apply(e, StatusSpec{Kind: StatusPoison, Turns: 2, Magnitude: 4})

	res := fx.Tick(e)
	assert.Equal(t, 4, res.Damage)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "[Orc] takes 4 poison damage.", res.Messages[0])
	assert.Equal(t, 96, e.CurrentHealth())

	fx.Tick(e)
	assert.Equal(t, 92, e.CurrentHealth())
	res = fx.Tick(e)
	assert.Zero(t, res.Damage)
	assert.Equal(t, 92, e.CurrentHealth())
}

func TestStatusEffects_RegenerationClampsToMax(t *testing.T) {
	fx := NewStatusEffects(nil)
	p := NewPlayer(PlayerConfig{Name: "Hero", MaxHealth: 50, Health: 48, Speed: 1})
	fx.Apply(p, StatusSpec{Kind: StatusRegeneration, Turns: 3, Magnitude: 5})

	res := fx.Tick(p)
	assert.Equal(t, 5, res.Heal)
	assert.Equal(t, 50, p.CurrentHealth())
}

func TestStatusEffects_ReapplyRefreshes(t *testing.T) {
	fx := NewStatusEffects(nil)
	p := newTestPlayer("Hero", 2)
	fx.Apply(p, StatusSpec{Kind: StatusBleed, Turns: 1, Magnitude: 2})
	fx.Apply(p, StatusSpec{Kind: StatusBleed, Turns: 3, Magnitude: 1})

	require.Len(t, p.Flags().Statuses, 1)
	assert.Equal(t, 3, p.Flags().Statuses[0].Turns)
	assert.Equal(t, 2.0, p.Flags().Statuses[0].Magnitude)
}

func TestStatusEffects_DeadActorsIgnored(t *testing.T) {
	fx := NewStatusEffects(nil)
	p := newTestPlayer("Hero", 2)
	p.SetHealth(0)
	fx.Apply(p, StatusSpec{Kind: StatusPoison, Turns: 2, Magnitude: 3})
	assert.Empty(t, p.Flags().Statuses)
	assert.Equal(t, TickResult{}, fx.Tick(p))
}
