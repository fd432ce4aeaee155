package combat

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/dungeonfighter/game/battle"
	"github.com/kasuganosora/dungeonfighter/game/narrative"
)

var (
	ErrNoEntities      = errors.New("combat: no entities registered")
	ErrSchedulingStall = errors.New("combat: scheduling stall")
	ErrIterationLimit  = errors.New("combat: iteration limit reached")
	ErrUnknownActor    = errors.New("combat: unknown actor")
)

// State is the orchestrator's position in the battle loop.
type State int

const (
	StateIdle State = iota
	StateSelectingActor
	StateActorActing
	StateResolving
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelectingActor:
		return "selecting_actor"
	case StateActorActing:
		return "actor_acting"
	case StateResolving:
		return "resolving"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// Defaults for the safety valves.
const (
	DefaultMaxIterations   = 1000
	DefaultMaxStalls       = 100
	DefaultEpsilon         = 0.01
	DefaultFallbackAdvance = 1.0
	// environment targets the player with this probability
	envTargetsPlayer = 0.5
)

// Config configures an Orchestrator. Player and Enemy are required; every
// collaborator left nil gets its default implementation.
type Config struct {
	Player      battle.Combatant
	Enemy       battle.Combatant
	Environment *battle.Environment // optional

	Timeline  battle.Timeline       // nil = battle.NewActionSpeedScheduler()
	Damage    battle.DamageModel    // nil = dice model on RNG
	Effects   battle.EffectEngine   // nil = battle.NewStatusEffects
	Selector  battle.ActionSelector // nil = battle.NewDefaultSelector(RNG)
	Narrative *narrative.TriggerEvaluator
	Text      narrative.TextProvider // used when Narrative is nil
	Settings  narrative.Settings

	Sink   Sink
	RNG    *rand.Rand
	Logger *zap.Logger

	MaxIterations   int     // 0 = DefaultMaxIterations
	MaxStalls       int     // 0 = DefaultMaxStalls
	Epsilon         float64 // 0 = DefaultEpsilon
	FallbackAdvance float64 // 0 = DefaultFallbackAdvance

	// SummaryDamage adds the damage line to a player-won summary.
	SummaryDamage bool
}

// Result describes a finished battle.
type Result struct {
	PlayerSurvived bool    `json:"player_survived"`
	Outcome        Outcome `json:"outcome"`
	Summary        string  `json:"summary"`

	// Turns counts player actions only.
	Turns int `json:"turns"`
	// Actions counts every resolved action, stunned turns excluded.
	Actions    int `json:"actions"`
	Iterations int `json:"iterations"`

	// Aborted is set when a safety valve ended the battle.
	Aborted error `json:"-"`

	NarrativeEventCount int     `json:"narrative_event_count"`
	Duration            float64 `json:"duration"`
	Tally
	Player battle.Snapshot `json:"player"`
	Enemy  battle.Snapshot `json:"enemy"`
}

// Orchestrator runs one battle. It owns its timeline and narrative state and
// must not be shared between goroutines.
type Orchestrator struct {
	player battle.Combatant
	enemy  battle.Combatant
	env    *battle.Environment

	tl        battle.Timeline
	damage    battle.DamageModel
	effects   battle.EffectEngine
	selector  battle.ActionSelector
	narrative *narrative.TriggerEvaluator
	settings  narrative.Settings

	sink   Sink
	rng    *rand.Rand
	logger *zap.Logger

	maxIter    int
	maxStalls  int
	epsilon    float64
	fallback   float64
	summaryDmg bool

	state    State
	seq      int
	initial  narrative.Health
	result   Result
	stopLoop bool
}

// New registers the participants with the timeline in the order player,
// enemy, environment. That order breaks ties.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Player == nil || cfg.Enemy == nil {
		return nil, fmt.Errorf("combat: player and enemy are required")
	}
	if cfg.RNG == nil {
		cfg.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeline == nil {
		cfg.Timeline = battle.NewActionSpeedScheduler()
	}
	if cfg.Damage == nil {
		cfg.Damage = battle.NewDiceDamageModel(cfg.RNG, cfg.Logger)
	}
	if cfg.Effects == nil {
		cfg.Effects = battle.NewStatusEffects(cfg.Logger)
	}
	if cfg.Selector == nil {
		cfg.Selector = battle.NewDefaultSelector(cfg.RNG)
	}
	if cfg.Narrative == nil {
		loc := ""
		if cfg.Environment != nil {
			loc = cfg.Environment.Location()
		}
		cfg.Narrative = narrative.NewTriggerEvaluator(narrative.Config{
			PlayerName: cfg.Player.Name(),
			EnemyName:  cfg.Enemy.Name(),
			Location:   loc,
			Text:       cfg.Text,
		})
	}
	if cfg.Sink == nil {
		cfg.Sink = discard{}
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MaxStalls <= 0 {
		cfg.MaxStalls = DefaultMaxStalls
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	if cfg.FallbackAdvance <= 0 {
		cfg.FallbackAdvance = DefaultFallbackAdvance
	}

	o := &Orchestrator{
		player:     cfg.Player,
		enemy:      cfg.Enemy,
		env:        cfg.Environment,
		tl:         cfg.Timeline,
		damage:     cfg.Damage,
		effects:    cfg.Effects,
		selector:   cfg.Selector,
		narrative:  cfg.Narrative,
		settings:   cfg.Settings,
		sink:       cfg.Sink,
		rng:        cfg.RNG,
		logger:     cfg.Logger,
		maxIter:    cfg.MaxIterations,
		maxStalls:  cfg.MaxStalls,
		epsilon:    cfg.Epsilon,
		fallback:   cfg.FallbackAdvance,
		summaryDmg: cfg.SummaryDamage,
	}

	for _, a := range o.participants() {
		if err := o.tl.AddEntity(a, a.BaseSpeed()); err != nil {
			return nil, fmt.Errorf("combat: register %s: %w", a.Name(), err)
		}
	}
	return o, nil
}

func (o *Orchestrator) participants() []battle.Actor {
	out := []battle.Actor{o.player, o.enemy}
	if o.env != nil {
		out = append(out, o.env)
	}
	return out
}

// SetFirstStrike lets side act first: it starts at 0.0 and the other
// fighter at 1.0. The environment keeps its slot.
func (o *Orchestrator) SetFirstStrike(side battle.Side) error {
	first, second := battle.Actor(o.player), battle.Actor(o.enemy)
	if side == battle.SideEnemy {
		first, second = second, first
	}
	if err := o.tl.SetEntityActionTime(first, 0.0); err != nil {
		return err
	}
	return o.tl.SetEntityActionTime(second, 1.0)
}

func (o *Orchestrator) State() State                          { return o.state }
func (o *Orchestrator) Narrative() *narrative.TriggerEvaluator { return o.narrative }

// Result returns the outcome; valid once Run has returned.
func (o *Orchestrator) Result() *Result { return &o.result }

// Run plays the battle to the end and reports whether the player survived.
// Safety valves end the battle early instead of hanging; the reason is
// recorded in Result().Aborted.
func (o *Orchestrator) Run() bool {
	if o.state == StateEnded {
		return o.result.PlayerSurvived
	}
	o.initial = o.health()
	o.logger.Debug("battle start",
		zap.String("player", o.player.Name()),
		zap.String("enemy", o.enemy.Name()),
		zap.Bool("environment", o.env != nil))

	stalls := 0
	for !o.over() && !o.stopLoop {
		if o.result.Iterations >= o.maxIter {
			o.abort(ErrIterationLimit)
			break
		}
		o.result.Iterations++
		o.state = StateSelectingActor

		actor := o.tl.GetNextEntityToAct()
		if actor == nil {
			if !o.fastForward(&stalls) {
				break
			}
			continue
		}
		stalls = 0
		o.state = StateActorActing
		o.act(actor)
	}
	o.finish()
	return o.result.PlayerSurvived
}

// fastForward moves the clock to the next ready time, never by less than
// epsilon. It returns false when the loop must stop.
func (o *Orchestrator) fastForward(stalls *int) bool {
	next := o.tl.GetNextReadyTime()
	if next < 0 {
		o.abort(ErrNoEntities)
		return false
	}
	*stalls++
	if *stalls >= o.maxStalls {
		o.abort(ErrSchedulingStall)
		return false
	}
	delta := next - o.tl.CurrentTime()
	if math.IsNaN(delta) || math.IsInf(delta, 0) || delta < o.epsilon {
		delta = o.epsilon
	}
	o.tl.AdvanceTime(delta)
	return true
}

func (o *Orchestrator) abort(err error) {
	o.result.Aborted = err
	o.logger.Warn("battle ended by safety valve",
		zap.Error(err),
		zap.Int("iterations", o.result.Iterations),
		zap.Float64("clock", o.tl.CurrentTime()))
}

func (o *Orchestrator) over() bool {
	return !o.player.IsAlive() || !o.enemy.IsAlive()
}

func (o *Orchestrator) health() narrative.Health {
	return narrative.Health{Player: o.player.CurrentHealth(), Enemy: o.enemy.CurrentHealth()}
}

// act runs one actor's turn.
func (o *Orchestrator) act(actor battle.Actor) {
	var target battle.Actor
	switch {
	case actor == battle.Actor(o.player):
		target = o.enemy
	case actor == battle.Actor(o.enemy):
		target = o.player
	case o.env != nil && actor == battle.Actor(o.env):
		target = o.envTarget()
	default:
		o.logger.Warn("unknown actor reached the battle loop", zap.String("actor", actor.Name()))
		_ = o.tl.AdvanceEntityTurn(actor, o.fallback)
		o.result.Aborted = ErrUnknownActor
		o.stopLoop = true
		return
	}

	if !o.effects.CanAct(actor) {
		o.emit(LineStatus, fmt.Sprintf("[%s] is stunned and cannot act!", actor.Name()), "")
		o.advance(actor, o.effects.StunAdvance(actor))
		return
	}

	action, ok := o.selector.Select(actor, target)
	if !ok {
		o.advance(actor, o.fallback)
		return
	}

	// Length is read before resolving so a fumble penalizes the next action.
	length := action.LengthMultiplier() * o.effects.LengthMultiplier(actor)

	o.state = StateResolving
	evt := o.resolve(actor, target, action)
	if err := o.tl.ExecuteAction(actor, length); err != nil {
		o.logger.Warn("execute action", zap.String("actor", actor.Name()), zap.Error(err))
		o.advance(actor, o.fallback)
	}
	evt.Time = o.tl.CurrentTime()

	o.result.Actions++
	if actor == battle.Actor(o.player) {
		o.result.Turns++
	}
	o.result.Tally.Record(evt)

	o.logger.Debug("action resolved",
		zap.String("actor", evt.Actor),
		zap.String("target", evt.Target),
		zap.String("action", evt.Action),
		zap.Int("roll", evt.Roll),
		zap.Int("damage", evt.Damage),
		zap.Bool("success", evt.Success),
		zap.Float64("clock", evt.Time))
	o.emit(LineCombat, describe(evt), "")

	for _, l := range o.narrative.AnalyzeLines(evt, o.initial, o.health(), o.settings) {
		o.emit(LineNarrative, l.Text, l.Kind)
	}
	if actor == battle.Actor(o.player) {
		o.narrative.State().ClearCriticalCooldown()
	}

	switch actor {
	case battle.Actor(o.player):
		o.tick(o.enemy)
	case battle.Actor(o.enemy):
		o.tick(o.player)
	}
}

func (o *Orchestrator) advance(a battle.Actor, amount float64) {
	if err := o.tl.AdvanceEntityTurn(a, amount); err != nil {
		o.logger.Warn("advance entity turn", zap.String("actor", a.Name()), zap.Error(err))
	}
}

func (o *Orchestrator) envTarget() battle.Actor {
	pAlive, eAlive := o.player.IsAlive(), o.enemy.IsAlive()
	switch {
	case pAlive && !eAlive:
		return o.player
	case eAlive && !pAlive:
		return o.enemy
	}
	if o.rng.Float64() < envTargetsPlayer {
		return o.player
	}
	return o.enemy
}

// resolve applies the action and returns its event with health snapshots.
func (o *Orchestrator) resolve(actor, target battle.Actor, action battle.Action) battle.BattleEvent {
	evt := battle.BattleEvent{
		Actor:              actor.Name(),
		Target:             target.Name(),
		ActorSide:          actor.Side(),
		TargetSide:         target.Side(),
		Action:             action.Name,
		ActorHealthBefore:  actor.CurrentHealth(),
		TargetHealthBefore: target.CurrentHealth(),
	}

	switch action.Kind {
	case battle.ActionEnvironmental:
		evt.EnvironmentEffect = action.Description
		evt.Damage = action.FixedDamage
		evt.Success = true
		if evt.Damage > 0 {
			target.SetHealth(target.CurrentHealth() - evt.Damage)
		}
		if action.Status != nil {
			o.effects.Apply(target, *action.Status)
		}

	case battle.ActionHeal:
		evt.Target, evt.TargetSide = actor.Name(), actor.Side()
		evt.TargetHealthBefore = actor.CurrentHealth()
		out := o.damage.Resolve(&battle.Attack{Attacker: actor, Defender: target, Action: action, ComboStep: 1})
		evt.Roll, evt.Success, evt.Critical = out.Roll, out.Success, out.Critical
		if out.Success && out.Heal > 0 {
			evt.IsHeal, evt.HealAmount = true, out.Heal
			actor.SetHealth(actor.CurrentHealth() + out.Heal)
		}
		target = actor

	default:
		c, _ := actor.(battle.Combatant)
		step := 1
		if c != nil {
			step = c.ComboStep() + 1
		}
		out := o.damage.Resolve(&battle.Attack{Attacker: actor, Defender: target, Action: action, ComboStep: step})
		evt.Roll, evt.Success, evt.Critical = out.Roll, out.Success, out.Critical
		if out.Success {
			evt.Damage = out.Damage
			target.SetHealth(target.CurrentHealth() - out.Damage)
			if action.Status != nil {
				o.effects.Apply(target, *action.Status)
			}
		}
		if out.CriticalMiss {
			actor.Flags().SpeedPenalty = true
		}
		if c != nil {
			if out.Success && out.Combo {
				evt.IsCombo, evt.ComboStep = true, step
				c.AdvanceCombo()
			} else {
				c.ResetCombo()
			}
		}
	}

	evt.ActorHealthAfter = actor.CurrentHealth()
	evt.TargetHealthAfter = target.CurrentHealth()
	return evt
}

// tick runs damage-over-time and regeneration on the side that did not act.
func (o *Orchestrator) tick(a battle.Actor) {
	if !a.IsAlive() {
		return
	}
	res := o.effects.Tick(a)
	for _, m := range res.Messages {
		o.emit(LineStatus, m, "")
	}
}

func (o *Orchestrator) emit(kind LineKind, text string, trigger narrative.Kind) {
	o.seq++
	o.sink.Emit(Line{
		Seq:     o.seq,
		Kind:    kind,
		Text:    text,
		Trigger: trigger,
		Time:    o.tl.CurrentTime(),
		Turn:    o.result.Turns,
	})
}

func (o *Orchestrator) finish() {
	o.state = StateEnded
	ph, eh := o.player.CurrentHealth(), o.enemy.CurrentHealth()
	r := &o.result
	r.PlayerSurvived = o.player.IsAlive()
	r.Outcome = Decide(ph, eh)
	r.Summary = Summarize(o.player.Name(), o.enemy.Name(), ph, eh, r.Tally, o.summaryDmg)
	r.NarrativeEventCount = o.narrative.State().NarrativeEventCount
	r.Duration = o.tl.CurrentTime()
	r.Player = battle.SnapshotActor(o.player)
	r.Enemy = battle.SnapshotActor(o.enemy)
	o.emit(LineSummary, r.Summary, "")

	fields := []zap.Field{
		zap.String("outcome", string(r.Outcome)),
		zap.Int("turns", r.Turns),
		zap.Int("actions", r.Actions),
		zap.Int("iterations", r.Iterations),
	}
	if r.Aborted != nil {
		fields = append(fields, zap.Error(r.Aborted))
	}
	o.logger.Info("battle ended", fields...)
}
