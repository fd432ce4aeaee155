package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	apirest "github.com/kasuganosora/dungeonfighter/api/rest"
	"github.com/kasuganosora/dungeonfighter/api/sse"
	"github.com/kasuganosora/dungeonfighter/cache"
	"github.com/kasuganosora/dungeonfighter/config"
	"github.com/kasuganosora/dungeonfighter/game/arena"
	"github.com/kasuganosora/dungeonfighter/game/sim"
	mw "github.com/kasuganosora/dungeonfighter/middleware"
	"github.com/kasuganosora/dungeonfighter/plugin/hook"
	"github.com/kasuganosora/dungeonfighter/report"
	"github.com/kasuganosora/dungeonfighter/resource"
	"github.com/kasuganosora/dungeonfighter/scheduler"
	"github.com/kasuganosora/dungeonfighter/testutil"
)

// TestServer wraps a real HTTP server with the arena subsystems wired together.
type TestServer struct {
	DB       *gorm.DB
	Cache    cache.Cache
	PubSub   cache.PubSub
	Hooks    *hook.HookCenter
	Arena    *arena.Service
	Recorder *report.Recorder
	Sched    *scheduler.Scheduler
	Server   *httptest.Server
	URL      string // http://127.0.0.1:<port>
	Sec      config.SecurityConfig
}

// NewTestServer creates a fully wired server for integration testing.
// It mirrors the dependency wiring in main.go. A nil catalog means the
// built-in one.
func NewTestServer(t *testing.T, cat *resource.Catalog) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTLH:        72 * time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
	}
	if cat == nil {
		cat = resource.DefaultCatalog()
	}

	// ---- Arena ----
	hooks := hook.NewHookCenter()
	recorder := report.NewRecorder(db, report.RecorderConfig{BatchSize: 10, FlushInterval: 20 * time.Millisecond}, logger)
	builder := &arena.Builder{Catalog: cat, Options: arena.DefaultOptions(), Hooks: hooks, Logger: logger}
	svc := arena.NewService(arena.Deps{
		Builder:  builder,
		Cache:    c,
		PubSub:   pubsub,
		Hooks:    hooks,
		Recorder: recorder,
		Store:    report.NewStore(db),
		Logger:   logger,
	})
	runner := sim.NewRunner(builder, 200, 4, logger)

	sched := scheduler.New(logger)
	sched.AddRecentTrim(svc, time.Minute)

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ---- REST API routes (mirrors main.go) ----
	authH := apirest.NewAuthHandler(c, sec)
	catH := apirest.NewCatalogHandler(cat)
	battleH := apirest.NewBattleHandler(svc)
	rankH := apirest.NewRankingHandler(svc, logger)
	simH := apirest.NewSimulationHandler(runner)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/guest", authH.Guest)
		authG.POST("/logout", mw.Auth(sec, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(sec, c), authH.Refresh)

		api.GET("/catalog", catH.List)
		api.GET("/catalog/heroes/:name", catH.Hero)
		api.GET("/catalog/enemies/:name", catH.Enemy)
		api.GET("/catalog/environments/:name", catH.Environment)

		api.GET("/battles", battleH.Recent)
		api.GET("/battles/:id", battleH.Get)
		api.POST("/battles", mw.Auth(sec, c), battleH.Create)

		api.GET("/leaderboard", rankH.Leaderboard)

		api.POST("/simulations", mw.Auth(sec, c), mw.IPWhitelist(sec.SimAllow, logger), simH.Run)
	}

	// ---- SSE ----
	sseH := sse.NewHandler(svc, c, sec, logger)
	r.GET("/sse/battles/:id", sseH.ServeBattle)

	// ---- Start server ----
	server := httptest.NewServer(r)
	ts := &TestServer{
		DB:       db,
		Cache:    c,
		PubSub:   pubsub,
		Hooks:    hooks,
		Arena:    svc,
		Recorder: recorder,
		Sched:    sched,
		Server:   server,
		URL:      server.URL,
		Sec:      sec,
	}
	t.Cleanup(ts.Close)
	return ts
}

// Close shuts down the server and background workers. NewTestServer
// registers it with t.Cleanup.
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.Sched.Stop()
	ts.Arena.Wait()
	ts.Recorder.Stop(context.Background())
}

// --- HTTP helpers ---

// PostJSON sends a POST request with JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// --- Auth helpers ---

// Guest signs in as a guest and returns the token.
func (ts *TestServer) Guest(t *testing.T, name string) string {
	t.Helper()
	resp := ts.PostJSON(t, "/api/auth/guest", map[string]string{"name": name}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]string
	ReadJSON(t, resp, &result)
	return result["token"]
}

// --- SSE client ---

// SSEEvent is one parsed server-sent event.
type SSEEvent struct {
	Name string
	Data string
}

// Stream reads a battle's event stream until the server closes it or the
// timeout passes.
func (ts *TestServer) Stream(t *testing.T, battleID, token string, timeout time.Duration) []SSEEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sse/battles/"+battleID+"?token="+token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var (
		events []SSEEvent
		cur    SSEEvent
	)
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if cur.Name != "" {
				events = append(events, cur)
			}
			cur = SSEEvent{}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			cur.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.Data = strings.TrimPrefix(line, "data: ")
		}
	}
	return events
}
