package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/dungeonfighter/game/sim"
)

// SimulationHandler runs balance simulations.
type SimulationHandler struct {
	runner *sim.Runner
}

func NewSimulationHandler(r *sim.Runner) *SimulationHandler {
	return &SimulationHandler{runner: r}
}

type simulationRequest struct {
	Hero        string `json:"hero" binding:"required"`
	Enemy       string `json:"enemy" binding:"required"`
	Environment string `json:"environment"`
	Battles     int    `json:"battles" binding:"required,min=1"`
	Concurrency int    `json:"concurrency"`
	Seed        int64  `json:"seed"`
}

// Run handles POST /api/simulations. The battle count is capped by config.
func (h *SimulationHandler) Run(c *gin.Context) {
	var body simulationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sum, err := h.runner.Run(c.Request.Context(), sim.Spec(body))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
