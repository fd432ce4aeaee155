package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/dungeonfighter/game/arena"
	mw "github.com/kasuganosora/dungeonfighter/middleware"
)

// BattleHandler handles battle REST endpoints.
type BattleHandler struct {
	svc *arena.Service
}

// NewBattleHandler creates a BattleHandler.
func NewBattleHandler(svc *arena.Service) *BattleHandler {
	return &BattleHandler{svc: svc}
}

type battleRequest struct {
	Hero        string `json:"hero" binding:"required"`
	Enemy       string `json:"enemy" binding:"required"`
	Environment string `json:"environment"`
	Seed        int64  `json:"seed"`
	FirstStrike string `json:"first_strike"`
	// Async returns 202 with the battle ID instead of waiting for the end.
	Async bool `json:"async"`
}

// Create handles POST /api/battles.
func (h *BattleHandler) Create(c *gin.Context) {
	var body battleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req := arena.Request{
		PlayerName:  mw.GetPlayerName(c),
		Hero:        body.Hero,
		Enemy:       body.Enemy,
		Environment: body.Environment,
		Seed:        body.Seed,
		FirstStrike: body.FirstStrike,
		TraceID:     mw.GetTraceID(c),
	}

	if body.Async {
		id, err := h.svc.FightAsync(c.Request.Context(), req)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"id": id})
		return
	}

	rep, err := h.svc.Fight(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rep)
}

// Get handles GET /api/battles/:id.
func (h *BattleHandler) Get(c *gin.Context) {
	rep, err := h.svc.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Recent handles GET /api/battles?limit=20.
func (h *BattleHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	reps, err := h.svc.Recent(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"battles": reps})
}
