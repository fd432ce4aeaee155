package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/dungeonfighter/model"
	"github.com/kasuganosora/dungeonfighter/testutil"
)

func TestStore_Get(t *testing.T) {
	db := testutil.SetupTestDB(t)
	require.NoError(t, db.Create(sampleReport("b-1", "alice", model.OutcomePlayerWon)).Error)
	store := NewStore(db)

	rep, err := store.Get(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", rep.PlayerName)
	assert.Len(t, rep.Lines.Data(), 1)

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RecentNewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		rep := sampleReport(id, "alice", model.OutcomePlayerWon)
		rep.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.Create(rep).Error)
	}
	store := NewStore(db)

	reps, err := store.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, reps, 2)
	assert.Equal(t, "new", reps[0].ID)
	assert.Equal(t, "mid", reps[1].ID)
}

func TestStore_Leaderboard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rows := []*model.BattleReport{
		sampleReport("1", "alice", model.OutcomePlayerWon),
		sampleReport("2", "bob", model.OutcomePlayerWon),
		sampleReport("3", "bob", model.OutcomePlayerWon),
		sampleReport("4", "carol", model.OutcomeEnemyWon),
		sampleReport("5", "alice", model.OutcomeStalemate),
	}
	for _, r := range rows {
		require.NoError(t, db.Create(r).Error)
	}

	board, err := NewStore(db).Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []Standing{{Name: "bob", Wins: 2}, {Name: "alice", Wins: 1}}, board)
}
