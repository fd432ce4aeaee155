// Package sim runs many independent battles of one matchup in parallel and
// aggregates their outcomes for balance tuning.
package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kasuganosora/dungeonfighter/game/arena"
	"github.com/kasuganosora/dungeonfighter/game/combat"
)

var ErrNoBattles = errors.New("sim: battles must be positive")

const (
	defaultMaxBattles     = 1000
	defaultMaxConcurrency = 8
)

// Spec describes one simulation run. Battle i uses seed Seed+i; see battleSeed.
type Spec struct {
	Hero        string `json:"hero"`
	Enemy       string `json:"enemy"`
	Environment string `json:"environment,omitempty"`
	Battles     int    `json:"battles"`
	Concurrency int    `json:"concurrency,omitempty"`
	Seed        int64  `json:"seed,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	Hero        string `json:"hero"`
	Enemy       string `json:"enemy"`
	Environment string `json:"environment,omitempty"`
	Battles     int    `json:"battles"`
	PlayerWins  int    `json:"player_wins"`
	EnemyWins   int    `json:"enemy_wins"`
	Stalemates  int    `json:"stalemates"`
	Aborted     int    `json:"aborted"`

	AvgTurns           float64 `json:"avg_turns"`
	AvgNarrativeEvents float64 `json:"avg_narrative_events"`
	AvgDuration        float64 `json:"avg_duration"`
	WinRate            float64 `json:"win_rate"`

	Elapsed time.Duration `json:"elapsed_ns"`
}

// Runner executes simulations. Every battle gets its own core from the
// builder; nothing is shared between goroutines except the tally.
type Runner struct {
	builder        *arena.Builder
	maxBattles     int
	maxConcurrency int
	logger         *zap.Logger
}

// NewRunner creates a Runner. Non-positive limits fall back to 1000
// battles and 8 workers.
func NewRunner(b *arena.Builder, maxBattles, maxConcurrency int, logger *zap.Logger) *Runner {
	if maxBattles <= 0 {
		maxBattles = defaultMaxBattles
	}
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{builder: b, maxBattles: maxBattles, maxConcurrency: maxConcurrency, logger: logger}
}

// Run plays spec.Battles battles, capped at the runner's limit. Cancelling
// ctx stops scheduling new battles and returns ctx.Err().
func (r *Runner) Run(ctx context.Context, spec Spec) (*Summary, error) {
	if spec.Battles <= 0 {
		return nil, ErrNoBattles
	}
	req := arena.Request{Hero: spec.Hero, Enemy: spec.Enemy, Environment: spec.Environment}
	if err := r.builder.Validate(&req); err != nil {
		return nil, err
	}
	n := min(spec.Battles, r.maxBattles)
	workers := spec.Concurrency
	if workers <= 0 || workers > r.maxConcurrency {
		workers = r.maxConcurrency
	}
	if spec.Seed == 0 {
		spec.Seed = time.Now().UnixNano()
	}

	start := time.Now()
	var (
		mu    sync.Mutex
		sum   = Summary{Hero: spec.Hero, Enemy: spec.Enemy, Environment: spec.Environment, Battles: n}
		turns int
		narr  int
		dur   float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		battleReq := req
		battleReq.Seed = battleSeed(spec.Seed, i, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := r.builder.Build(gctx, battleReq, nil)
			if err != nil {
				return err
			}
			b.Run()
			res := b.Result()

			mu.Lock()
			defer mu.Unlock()
			switch res.Outcome {
			case combat.OutcomePlayerWon:
				sum.PlayerWins++
			case combat.OutcomeEnemyWon:
				sum.EnemyWins++
			default:
				sum.Stalemates++
			}
			if res.Aborted != nil {
				sum.Aborted++
			}
			turns += res.Turns
			narr += res.NarrativeEventCount
			dur += res.Duration
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum.AvgTurns = float64(turns) / float64(n)
	sum.AvgNarrativeEvents = float64(narr) / float64(n)
	sum.AvgDuration = dur / float64(n)
	sum.WinRate = float64(sum.PlayerWins) / float64(n)
	sum.Elapsed = time.Since(start)

	r.logger.Info("simulation finished",
		zap.String("hero", spec.Hero),
		zap.String("enemy", spec.Enemy),
		zap.Int("battles", n),
		zap.Int("workers", workers),
		zap.Float64("win_rate", sum.WinRate),
		zap.Duration("elapsed", sum.Elapsed))
	return &sum, nil
}

// battleSeed returns the seed of battle i out of n. A seed of 0 would make
// the builder read the clock, so that slot takes base+n, which no other
// battle of the run uses.
func battleSeed(base int64, i, n int) int64 {
	if s := base + int64(i); s != 0 {
		return s
	}
	return base + int64(n)
}
