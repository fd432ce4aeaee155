package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdTable_Defaults(t *testing.T) {
	tbl := NewThresholdTable(Thresholds{})
	assert.Equal(t, DefaultThresholds, tbl.Resolve("Hero"))
	assert.Nil(t, tbl.Modifiers("Hero"))
}

func TestThresholdTable_LazyOverride(t *testing.T) {
	tbl := NewThresholdTable(DefaultThresholds)
	require.NoError(t, tbl.Override("Hero", ThresholdCriticalHit, 18))

	m := tbl.Modifiers("Hero")
	require.NotNil(t, m)
	require.NotNil(t, m.CriticalHit)
	assert.Nil(t, m.Hit)

	got := tbl.Resolve("Hero")
	assert.Equal(t, 18, got.CriticalHit)
	assert.Equal(t, DefaultThresholds.Hit, got.Hit)
	assert.Equal(t, DefaultThresholds, tbl.Resolve("Goblin"))
}

func TestThresholdTable_OverrideIsFixedUntilReset(t *testing.T) {
	tbl := NewThresholdTable(DefaultThresholds)
	require.NoError(t, tbl.Override("Hero", ThresholdCombo, 12))
	assert.ErrorIs(t, tbl.Override("Hero", ThresholdCombo, 10), ErrThresholdLocked)
	assert.Equal(t, 12, tbl.Resolve("Hero").Combo)

	tbl.Reset("Hero")
	assert.Nil(t, tbl.Modifiers("Hero"))
	require.NoError(t, tbl.Override("Hero", ThresholdCombo, 10))
	assert.Equal(t, 10, tbl.Resolve("Hero").Combo)
}

func TestThresholdTable_AllKinds(t *testing.T) {
	tbl := NewThresholdTable(DefaultThresholds)
	require.NoError(t, tbl.Override("X", ThresholdCriticalHit, 19))
	require.NoError(t, tbl.Override("X", ThresholdCriticalMiss, 2))
	require.NoError(t, tbl.Override("X", ThresholdCombo, 13))
	require.NoError(t, tbl.Override("X", ThresholdHit, 4))
	assert.Equal(t, Thresholds{CriticalHit: 19, CriticalMiss: 2, Combo: 13, Hit: 4}, tbl.Resolve("X"))
}
