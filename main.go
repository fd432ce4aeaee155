package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	apirest "github.com/kasuganosora/dungeonfighter/api/rest"
	"github.com/kasuganosora/dungeonfighter/api/sse"
	"github.com/kasuganosora/dungeonfighter/cache"
	"github.com/kasuganosora/dungeonfighter/config"
	dbadapter "github.com/kasuganosora/dungeonfighter/db"
	"github.com/kasuganosora/dungeonfighter/game/arena"
	"github.com/kasuganosora/dungeonfighter/game/script"
	"github.com/kasuganosora/dungeonfighter/game/sim"
	mw "github.com/kasuganosora/dungeonfighter/middleware"
	"github.com/kasuganosora/dungeonfighter/model"
	"github.com/kasuganosora/dungeonfighter/plugin/hook"
	"github.com/kasuganosora/dungeonfighter/report"
	"github.com/kasuganosora/dungeonfighter/resource"
	"github.com/kasuganosora/dungeonfighter/scheduler"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	if _, err := os.Stat(cfgPath); err != nil && len(os.Args) <= 1 {
		cfgPath = "" // defaults + DF_* env
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "change-me" {
		logger.Warn("security.jwt_secret is the default; set DF_SECURITY_JWT_SECRET")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Catalog ----
	cat := resource.DefaultCatalog()
	if cfg.Resource.CatalogPath != "" {
		if cat, err = resource.LoadCatalog(cfg.Resource.CatalogPath); err != nil {
			log.Fatalf("catalog: %v", err)
		}
	}
	names := cat.Names()
	logger.Info("Catalog loaded",
		zap.Int("heroes", len(names.Heroes)),
		zap.Int("enemies", len(names.Enemies)),
		zap.Int("environments", len(names.Environments)))

	// ---- JS Sandbox / Hooks ----
	sandbox := script.NewSandbox(cfg.Script.VMPoolSize, cfg.Script.Timeout, logger)
	hooks := hook.NewHookCenter()
	hooks.Register(hook.BattleEnd, 100, "log", func(_ context.Context, _ string, data interface{}) (interface{}, error) {
		if rep, ok := data.(*model.BattleReport); ok {
			logger.Debug("battle ended",
				zap.String("battle_id", rep.ID),
				zap.String("player", rep.PlayerName),
				zap.String("outcome", rep.Outcome),
				zap.Int("turns", rep.Turns))
		}
		return data, nil
	})

	// ---- Reports ----
	recorder := report.NewRecorder(db, report.RecorderConfig{
		BatchSize:     cfg.Report.BatchSize,
		FlushInterval: cfg.Report.FlushInterval,
	}, logger)
	store := report.NewStore(db)

	// ---- Arena ----
	builder := &arena.Builder{
		Catalog: cat,
		Options: arena.OptionsFromConfig(cfg),
		Script:  sandbox,
		Hooks:   hooks,
		Logger:  logger,
	}
	svc := arena.NewService(arena.Deps{
		Builder:     builder,
		Cache:       c,
		PubSub:      pubsub,
		Hooks:       hooks,
		Recorder:    recorder,
		Store:       store,
		Logger:      logger,
		LinesTTL:    cfg.Battle.LinesTTL,
		RecentLimit: cfg.Battle.RecentLimit,
	})
	runner := sim.NewRunner(builder, cfg.Sim.MaxBattles, cfg.Sim.MaxConcurrency, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	sched.AddRecentTrim(svc, time.Minute)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authH := apirest.NewAuthHandler(c, cfg.Security)
	catH := apirest.NewCatalogHandler(cat)
	battleH := apirest.NewBattleHandler(svc)
	rankH := apirest.NewRankingHandler(svc, logger)
	simH := apirest.NewSimulationHandler(runner)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/guest", authH.Guest)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		api.GET("/catalog", catH.List)
		api.GET("/catalog/heroes/:name", catH.Hero)
		api.GET("/catalog/enemies/:name", catH.Enemy)
		api.GET("/catalog/environments/:name", catH.Environment)

		api.GET("/battles", battleH.Recent)
		api.GET("/battles/:id", battleH.Get)
		api.POST("/battles", mw.Auth(cfg.Security, c), battleH.Create)

		api.GET("/leaderboard", rankH.Leaderboard)

		api.POST("/simulations",
			mw.Auth(cfg.Security, c),
			mw.IPWhitelist(cfg.Security.SimAllow, logger),
			simH.Run)
	}

	// ---- SSE ----
	sseH := sse.NewHandler(svc, c, cfg.Security, logger)
	r.GET("/sse/battles/:id", sseH.ServeBattle)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	sched.Stop()
	svc.Wait()
	recorder.Stop(shutdownCtx)
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newLogger builds the development logger in debug mode and a JSON
// production logger otherwise. log.file sends output to a rotating file.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Log.File == "" {
		var zc zap.Config
		if cfg.Server.Debug {
			zc = zap.NewDevelopmentConfig()
		} else {
			zc = zap.NewProductionConfig()
		}
		zc.Level = zap.NewAtomicLevelAt(level)
		return zc.Build()
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   true,
	})
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level)
	return zap.New(core, zap.AddCaller()), nil
}
