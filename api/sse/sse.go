// Package sse streams battle lines to browsers as server-sent events.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/dungeonfighter/cache"
	"github.com/kasuganosora/dungeonfighter/config"
	"github.com/kasuganosora/dungeonfighter/game/arena"
	mw "github.com/kasuganosora/dungeonfighter/middleware"
	"github.com/kasuganosora/dungeonfighter/report"
)

const keepaliveInterval = 15 * time.Second

// Handler handles the battle stream endpoint.
type Handler struct {
	svc       *arena.Service
	c         cache.Cache
	sec       config.SecurityConfig
	logger    *zap.Logger
	keepalive time.Duration
}

// NewHandler creates a new SSE Handler.
func NewHandler(svc *arena.Service, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, c: c, sec: sec, logger: logger, keepalive: keepaliveInterval}
}

// ServeBattle handles GET /sse/battles/:id?token=<jwt>.
// Lines already emitted are replayed first, then live lines follow until
// the end event. EventSource cannot set headers, so the token comes in the
// query string.
func (h *Handler) ServeBattle(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	if _, err := mw.Authenticate(c.Request.Context(), tokenStr, h.sec, h.c); err != nil {
		msg := "invalid token"
		if errors.Is(err, mw.ErrSessionExpired) {
			msg = "session expired"
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}
	id := c.Param("id")
	ctx := c.Request.Context()

	// Subscribe before reading the replay so no line falls in between.
	live, unsub, err := h.svc.Watch(ctx, id)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.String("battle_id", id), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	// Read before the replay: a battle that finishes in between has its
	// report cached by the time it leaves the in-flight set.
	running := h.svc.InFlight(id)

	backlog, err := h.svc.Replay(ctx, id)
	if err != nil {
		h.logger.Warn("sse replay failed", zap.String("battle_id", id), zap.Error(err))
	}
	if len(backlog) == 0 {
		rep, err := h.svc.Lookup(ctx, id)
		switch {
		case err == nil:
			backlog = arena.ReportEvents(rep)
		case errors.Is(err, report.ErrNotFound):
			if !running {
				c.JSON(http.StatusNotFound, gin.H{"error": "battle not found"})
				return
			}
			// Started but nothing emitted yet: wait on the channel.
		default:
			h.logger.Warn("sse lookup failed", zap.String("battle_id", id), zap.Error(err))
		}
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	w := &eventWriter{w: c.Writer, flush: c.Writer.Flush, lastSeq: -1}
	for _, evt := range backlog {
		if done := w.send(evt); done {
			return
		}
	}
	if w.err != nil {
		return
	}

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()
	for {
		select {
		case evt, ok := <-live:
			if !ok {
				return
			}
			if done := w.send(evt); done || w.err != nil {
				return
			}
		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			if _, err := fmt.Fprint(c.Writer, ": keepalive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}

type eventWriter struct {
	w       io.Writer
	flush   func()
	lastSeq int
	err     error
}

// send writes evt unless it is a line already sent. It reports whether the
// stream is finished.
func (ew *eventWriter) send(evt arena.Event) bool {
	if evt.Type == arena.EventLine {
		if evt.Line == nil || evt.Line.Seq <= ew.lastSeq {
			return false
		}
		ew.lastSeq = evt.Line.Seq
	}
	var data []byte
	if evt.Type == arena.EventLine {
		data, ew.err = json.Marshal(evt.Line)
	} else {
		data, ew.err = json.Marshal(gin.H{"summary": evt.Summary, "outcome": evt.Outcome})
	}
	if ew.err != nil {
		return true
	}
	if _, ew.err = fmt.Fprintf(ew.w, "event: %s\ndata: %s\n\n", evt.Type, data); ew.err != nil {
		return true
	}
	ew.flush()
	return evt.Type == arena.EventEnd
}
