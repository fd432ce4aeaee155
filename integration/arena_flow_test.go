package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/dungeonfighter/game/arena"
	"github.com/kasuganosora/dungeonfighter/model"
	"github.com/kasuganosora/dungeonfighter/plugin/hook"
	"github.com/kasuganosora/dungeonfighter/resource"
)

const titanCatalog = `
heroes:
  - name: Titan
    max_health: 10000
    stats: {strength: 200, agility: 10}
enemies:
  - name: Slime
    max_health: 1
    stats: {strength: 0}
environments:
  - name: Pit
    location: dark pit
    effects:
      - {name: Pebble, description: A pebble falls!, damage: 0}
`

func titan(t *testing.T) *resource.Catalog {
	t.Helper()
	cat, err := resource.ParseCatalog([]byte(titanCatalog))
	require.NoError(t, err)
	return cat
}

func TestHealth(t *testing.T) {
	ts := NewTestServer(t, nil)
	resp := ts.Get(t, "/health", "")
	var body map[string]string
	ReadJSON(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}

func TestGuestLifecycle(t *testing.T) {
	ts := NewTestServer(t, nil)

	token := ts.Guest(t, "ayla")
	resp := ts.PostJSON(t, "/api/auth/refresh", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var refreshed map[string]string
	ReadJSON(t, resp, &refreshed)
	token2 := refreshed["token"]
	require.NotEqual(t, token, token2)

	resp = ts.PostJSON(t, "/api/auth/logout", nil, token2)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.PostJSON(t, "/api/battles", map[string]string{"hero": "Knight", "enemy": "Goblin"}, token2)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestBattleRoundTrip(t *testing.T) {
	ts := NewTestServer(t, nil)
	token := ts.Guest(t, "bo")

	var names resource.Names
	ReadJSON(t, ts.Get(t, "/api/catalog", ""), &names)
	require.Contains(t, names.Heroes, "Knight")
	require.Contains(t, names.Environments, "Lava Forge")

	resp := ts.PostJSON(t, "/api/battles", map[string]interface{}{
		"hero": "Knight", "enemy": "Goblin", "environment": "Lava Forge", "seed": 1234,
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var rep model.BattleReport
	ReadJSON(t, resp, &rep)
	assert.Equal(t, "bo", rep.PlayerName)
	assert.Contains(t, []string{model.OutcomePlayerWon, model.OutcomeEnemyWon, model.OutcomeStalemate}, rep.Outcome)
	assert.NotEmpty(t, rep.Summary)

	// Same seed, same battle.
	resp = ts.PostJSON(t, "/api/battles", map[string]interface{}{
		"hero": "Knight", "enemy": "Goblin", "environment": "Lava Forge", "seed": 1234,
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var again model.BattleReport
	ReadJSON(t, resp, &again)
	assert.NotEqual(t, rep.ID, again.ID)
	assert.Equal(t, rep.Summary, again.Summary)
	assert.Equal(t, rep.Lines.Data(), again.Lines.Data())

	var got model.BattleReport
	ReadJSON(t, ts.Get(t, "/api/battles/"+rep.ID, ""), &got)
	assert.Equal(t, rep.Outcome, got.Outcome)

	var recent struct {
		Battles []model.BattleReport `json:"battles"`
	}
	ReadJSON(t, ts.Get(t, "/api/battles?limit=10", ""), &recent)
	require.Len(t, recent.Battles, 2)
	assert.Equal(t, again.ID, recent.Battles[0].ID)

	// Everything reaches the database.
	require.Eventually(t, func() bool {
		var n int64
		ts.DB.Model(&model.BattleReport{}).Count(&n)
		return n == 2
	}, 3*time.Second, 20*time.Millisecond)
}

func TestLeaderboardAcrossPlayers(t *testing.T) {
	ts := NewTestServer(t, titan(t))
	for i, name := range []string{"cy", "dee", "dee", "dee", "eli", "eli"} {
		token := ts.Guest(t, name)
		resp := ts.PostJSON(t, "/api/battles", map[string]interface{}{
			"hero": "Titan", "enemy": "Slime", "seed": i + 1,
		}, token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	var board struct {
		Leaderboard []struct {
			Rank int    `json:"rank"`
			Name string `json:"name"`
			Wins int64  `json:"wins"`
		} `json:"leaderboard"`
	}
	ReadJSON(t, ts.Get(t, "/api/leaderboard", ""), &board)
	require.Len(t, board.Leaderboard, 3)
	assert.Equal(t, "dee", board.Leaderboard[0].Name)
	assert.Equal(t, int64(3), board.Leaderboard[0].Wins)
	assert.Equal(t, "eli", board.Leaderboard[1].Name)
	assert.Equal(t, 3, board.Leaderboard[2].Rank)
}

func TestBattleStream(t *testing.T) {
	ts := NewTestServer(t, titan(t))
	token := ts.Guest(t, "fay")

	resp := ts.PostJSON(t, "/api/battles", map[string]interface{}{
		"hero": "Titan", "enemy": "Slime", "environment": "Pit", "seed": 77, "async": true,
	}, token)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var accepted map[string]string
	ReadJSON(t, resp, &accepted)

	events := ts.Stream(t, accepted["id"], token, 5*time.Second)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "end", last.Name)
	var end map[string]string
	require.NoError(t, json.Unmarshal([]byte(last.Data), &end))
	assert.Equal(t, model.OutcomePlayerWon, end["outcome"])

	seen := map[int]bool{}
	for _, evt := range events[:len(events)-1] {
		require.Equal(t, "line", evt.Name)
		var line struct {
			Seq int `json:"seq"`
		}
		require.NoError(t, json.Unmarshal([]byte(evt.Data), &line))
		assert.False(t, seen[line.Seq], "duplicate seq %d", line.Seq)
		seen[line.Seq] = true
	}

	ts.Arena.Wait()
	rep, err := ts.Arena.Lookup(context.Background(), accepted["id"])
	require.NoError(t, err)
	assert.Len(t, seen, len(rep.Lines.Data()))
}

func TestBattleStartHookRejects(t *testing.T) {
	ts := NewTestServer(t, titan(t))
	ts.Hooks.Register(hook.BattleStart, 0, "ban", func(_ context.Context, _ string, data interface{}) (interface{}, error) {
		if data.(*arena.Request).PlayerName == "mallory" {
			return data, hook.ErrInterrupt
		}
		return data, nil
	})

	resp := ts.PostJSON(t, "/api/battles", map[string]string{"hero": "Titan", "enemy": "Slime"}, ts.Guest(t, "mallory"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = ts.PostJSON(t, "/api/battles", map[string]string{"hero": "Titan", "enemy": "Slime"}, ts.Guest(t, "trent"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestSimulation(t *testing.T) {
	ts := NewTestServer(t, nil)
	token := ts.Guest(t, "gus")

	run := func(workers int) map[string]interface{} {
		resp := ts.PostJSON(t, "/api/simulations", map[string]interface{}{
			"hero": "Mage", "enemy": "Orc Warlord", "battles": 30, "concurrency": workers, "seed": 5,
		}, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var sum map[string]interface{}
		ReadJSON(t, resp, &sum)
		return sum
	}
	a, b := run(1), run(4)
	assert.Equal(t, float64(30), a["battles"])
	for _, k := range []string{"player_wins", "enemy_wins", "stalemates", "avg_turns"} {
		assert.Equal(t, a[k], b[k], fmt.Sprintf("%s differs between worker counts", k))
	}
}
