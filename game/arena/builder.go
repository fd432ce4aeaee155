// Package arena turns catalog entries into live battles and runs them for
// the HTTP API and the simulator.
package arena

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/dungeonfighter/config"
	"github.com/kasuganosora/dungeonfighter/game/battle"
	"github.com/kasuganosora/dungeonfighter/game/combat"
	"github.com/kasuganosora/dungeonfighter/game/narrative"
	"github.com/kasuganosora/dungeonfighter/plugin/hook"
	"github.com/kasuganosora/dungeonfighter/resource"
)

var (
	ErrUnknownHero        = errors.New("arena: unknown hero")
	ErrUnknownEnemy       = errors.New("arena: unknown enemy")
	ErrUnknownEnvironment = errors.New("arena: unknown environment")
	ErrBadFirstStrike     = errors.New("arena: first_strike must be player, enemy or empty")
	ErrNameTaken          = errors.New("arena: player name is taken by another fighter")
)

// Request describes one battle.
type Request struct {
	PlayerName  string `json:"player_name"`
	Hero        string `json:"hero"`
	Enemy       string `json:"enemy"`
	Environment string `json:"environment,omitempty"`
	// Seed drives every roll; 0 picks one from the clock.
	Seed int64 `json:"seed,omitempty"`
	// FirstStrike is "", "player" or "enemy".
	FirstStrike string `json:"first_strike,omitempty"`
	TraceID     string `json:"-"`
}

// Resolution is the hook payload for hook.AfterResolve.
type Resolution struct {
	Attack  *battle.Attack
	Outcome *battle.Outcome
}

// Options are the battle tunables taken from config.
type Options struct {
	MaxIterations        int
	MaxStalls            int
	Epsilon              float64
	FallbackAdvance      float64
	EnvironmentSpeed     float64
	EnvironmentActChance float64
	PlayerSpeed          float64
	SummaryDamage        bool
	ScriptTimeout        time.Duration
	Narrative            narrative.Settings
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		MaxIterations:        combat.DefaultMaxIterations,
		MaxStalls:            combat.DefaultMaxStalls,
		Epsilon:              combat.DefaultEpsilon,
		FallbackAdvance:      combat.DefaultFallbackAdvance,
		EnvironmentSpeed:     battle.DefaultEnvironmentSpeed,
		EnvironmentActChance: battle.DefaultEnvironmentActChance,
		SummaryDamage:        true,
		Narrative:            narrative.DefaultSettings(),
	}
}

// OptionsFromConfig converts the battle and narrative config sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxIterations:        cfg.Battle.MaxIterations,
		MaxStalls:            cfg.Battle.MaxStalls,
		Epsilon:              cfg.Battle.Epsilon,
		FallbackAdvance:      cfg.Battle.FallbackAdvance,
		EnvironmentSpeed:     cfg.Battle.EnvironmentSpeed,
		EnvironmentActChance: cfg.Battle.EnvironmentActChance,
		PlayerSpeed:          cfg.Battle.PlayerSpeed,
		SummaryDamage:        cfg.Battle.SummaryDamage,
		ScriptTimeout:        cfg.Script.Timeout,
		Narrative: narrative.Settings{
			NarrativeBalance:      cfg.Narrative.Balance,
			EnableNarrativeEvents: cfg.Narrative.Enabled,
		},
	}
}

// Builder assembles a fresh battle core per request. It is safe for
// concurrent use; nothing it builds is shared between battles.
type Builder struct {
	Catalog *resource.Catalog
	Options Options
	Script  battle.FormulaScript // optional
	Hooks   *hook.HookCenter     // optional
	Logger  *zap.Logger
}

// Battle is a built, not yet run, battle.
type Battle struct {
	*combat.Orchestrator
	Seed        int64
	Hero        *resource.FighterDef
	Enemy       *resource.FighterDef
	Environment *resource.EnvironmentDef // nil without an environment
	Player      *battle.Player
	Foe         *battle.Enemy
	Env         *battle.Environment
	Dice        *battle.DiceDamageModel
}

// Validate resolves the catalog names in req without building anything.
func (b *Builder) Validate(req *Request) error {
	if _, ok := b.Catalog.Hero(req.Hero); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHero, req.Hero)
	}
	if _, ok := b.Catalog.Enemy(req.Enemy); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEnemy, req.Enemy)
	}
	if req.Environment != "" {
		if _, ok := b.Catalog.Environment(req.Environment); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownEnvironment, req.Environment)
		}
	}
	if err := b.checkPlayerName(req); err != nil {
		return err
	}
	if _, err := parseFirstStrike(req.FirstStrike); err != nil {
		return err
	}
	return nil
}

// checkPlayerName rejects a player whose display name matches the enemy or
// the environment. Threshold overrides are keyed by actor name.
func (b *Builder) checkPlayerName(req *Request) error {
	name := req.PlayerName
	if name == "" {
		h, _ := b.Catalog.Hero(req.Hero)
		name = h.Name
	}
	e, _ := b.Catalog.Enemy(req.Enemy)
	if strings.EqualFold(name, e.Name) {
		return fmt.Errorf("%w: %q", ErrNameTaken, name)
	}
	if req.Environment != "" {
		env, _ := b.Catalog.Environment(req.Environment)
		if strings.EqualFold(name, env.Name) {
			return fmt.Errorf("%w: %q", ErrNameTaken, name)
		}
	}
	return nil
}

func parseFirstStrike(s string) (battle.Side, error) {
	switch strings.ToLower(s) {
	case "":
		return -1, nil
	case "player":
		return battle.SidePlayer, nil
	case "enemy":
		return battle.SideEnemy, nil
	}
	return -1, ErrBadFirstStrike
}

// Build creates the actors, models and orchestrator for req. ctx is handed
// to resolve hooks.
func (b *Builder) Build(ctx context.Context, req Request, sink combat.Sink) (*Battle, error) {
	if err := b.Validate(&req); err != nil {
		return nil, err
	}
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heroDef, _ := b.Catalog.Hero(req.Hero)
	enemyDef, _ := b.Catalog.Enemy(req.Enemy)

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	opts := b.Options
	hero := *heroDef
	if hero.Speed <= 0 {
		hero.Speed = opts.PlayerSpeed
	}
	player := hero.NewPlayer(req.PlayerName)
	foe := enemyDef.NewEnemy()

	var env *battle.Environment
	var envDef *resource.EnvironmentDef
	if req.Environment != "" {
		envDef, _ = b.Catalog.Environment(req.Environment)
		def := *envDef
		if def.Speed <= 0 {
			def.Speed = opts.EnvironmentSpeed
		}
		if def.ActChance <= 0 {
			def.ActChance = opts.EnvironmentActChance
		}
		env = def.NewEnvironment()
	}

	dice := battle.NewDiceDamageModel(rng, logger)
	dice.Script = b.Script
	dice.ScriptTimeout = opts.ScriptTimeout
	applyThresholds(dice.Thresholds, player.Name(), heroDef.Thresholds)
	applyThresholds(dice.Thresholds, foe.Name(), enemyDef.Thresholds)
	b.wireResolveHooks(ctx, dice)

	o, err := combat.New(combat.Config{
		Player:          player,
		Enemy:           foe,
		Environment:     env,
		Damage:          dice,
		Selector:        battle.NewDefaultSelector(rng),
		Text:            b.Catalog.Text(),
		Settings:        opts.Narrative,
		Sink:            sink,
		RNG:             rng,
		Logger:          logger.With(zap.Int64("seed", seed)),
		MaxIterations:   opts.MaxIterations,
		MaxStalls:       opts.MaxStalls,
		Epsilon:         opts.Epsilon,
		FallbackAdvance: opts.FallbackAdvance,
		SummaryDamage:   opts.SummaryDamage,
	})
	if err != nil {
		return nil, err
	}
	if side, _ := parseFirstStrike(req.FirstStrike); side >= 0 {
		if err := o.SetFirstStrike(side); err != nil {
			return nil, err
		}
	}
	return &Battle{
		Orchestrator: o,
		Seed:         seed,
		Hero:         heroDef,
		Enemy:        enemyDef,
		Environment:  envDef,
		Player:       player,
		Foe:          foe,
		Env:          env,
		Dice:         dice,
	}, nil
}

func applyThresholds(t *battle.ThresholdTable, actor string, th battle.Thresholds) {
	set := func(k battle.ThresholdKind, v int) {
		if v > 0 {
			_ = t.Override(actor, k, v)
		}
	}
	set(battle.ThresholdCriticalHit, th.CriticalHit)
	set(battle.ThresholdCriticalMiss, th.CriticalMiss)
	set(battle.ThresholdCombo, th.Combo)
	set(battle.ThresholdHit, th.Hit)
}

// wireResolveHooks routes the dice model's resolve callbacks through the
// hook center. Handlers mutate the payload in place.
func (b *Builder) wireResolveHooks(ctx context.Context, dice *battle.DiceDamageModel) {
	if b.Hooks == nil {
		return
	}
	if b.Hooks.Has(hook.BeforeResolve) {
		dice.BeforeResolve = func(atk *battle.Attack) {
			_, _ = b.Hooks.Trigger(ctx, hook.BeforeResolve, atk)
		}
	}
	if b.Hooks.Has(hook.AfterResolve) {
		dice.AfterResolve = func(atk *battle.Attack, out *battle.Outcome) {
			_, _ = b.Hooks.Trigger(ctx, hook.AfterResolve, &Resolution{Attack: atk, Outcome: out})
		}
	}
}
