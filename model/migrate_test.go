package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/kasuganosora/dungeonfighter/model"
	"github.com/kasuganosora/dungeonfighter/testutil"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	rep := &model.BattleReport{
		ID:         "b-001",
		PlayerName: "Alice",
		Hero:       "Knight",
		Enemy:      "Goblin",
		Outcome:    model.OutcomePlayerWon,
		Turns:      4,
		Summary:    "Combos executed: 1 vs 0.",
		Lines: datatypes.NewJSONType([]model.BattleLine{
			{Seq: 1, Kind: "combat", Text: "[Alice] uses Slash on Goblin for 7 damage. (roll 12)"},
			{Seq: 2, Kind: "narrative", Trigger: "firstBlood", Text: "The first drop of blood is drawn!"},
		}),
	}
	require.NoError(t, db.Create(rep).Error)

	var found model.BattleReport
	require.NoError(t, db.First(&found, "id = ?", "b-001").Error)
	assert.Equal(t, "Alice", found.PlayerName)
	assert.Equal(t, model.OutcomePlayerWon, found.Outcome)
	assert.False(t, found.CreatedAt.IsZero())

	lines := found.Lines.Data()
	require.Len(t, lines, 2)
	assert.Equal(t, "firstBlood", lines[1].Trigger)
}
