package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/dungeonfighter/game/arena"
)

// RankingHandler handles the leaderboard endpoint.
type RankingHandler struct {
	svc    *arena.Service
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler.
func NewRankingHandler(svc *arena.Service, logger *zap.Logger) *RankingHandler {
	return &RankingHandler{svc: svc, logger: logger}
}

const rankingTop = 100

// RankEntry is one row in the leaderboard.
type RankEntry struct {
	Rank int    `json:"rank"`
	Name string `json:"name"`
	Wins int64  `json:"wins"`
}

// Leaderboard returns the players with the most wins.
// GET /api/leaderboard?limit=10
func (h *RankingHandler) Leaderboard(c *gin.Context) {
	limit := 10
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= rankingTop {
		limit = l
	}
	rows, err := h.svc.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("leaderboard query failed", zap.Error(err))
		abortWithError(c, err)
		return
	}
	entries := make([]RankEntry, len(rows))
	for i, r := range rows {
		entries[i] = RankEntry{Rank: i + 1, Name: r.Name, Wins: r.Wins}
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}
