package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/dungeonfighter/game/arena"
	"github.com/kasuganosora/dungeonfighter/game/sim"
	"github.com/kasuganosora/dungeonfighter/report"
)

// statusOf maps service errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, arena.ErrUnknownHero),
		errors.Is(err, arena.ErrUnknownEnemy),
		errors.Is(err, arena.ErrUnknownEnvironment),
		errors.Is(err, arena.ErrBadFirstStrike),
		errors.Is(err, arena.ErrNameTaken),
		errors.Is(err, sim.ErrNoBattles):
		return http.StatusBadRequest
	case errors.Is(err, arena.ErrRejected):
		return http.StatusForbidden
	case errors.Is(err, report.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// abortWithError writes {"error": ...}. Internal errors are recorded on the
// context for the request logger and not echoed to the client.
func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
