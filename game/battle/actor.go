package battle

import "math"

// Side identifies which party an actor fights for.
type Side int

const (
	SidePlayer Side = iota
	SideEnemy
	SideEnvironment
)

func (s Side) String() string {
	switch s {
	case SidePlayer:
		return "player"
	case SideEnemy:
		return "enemy"
	case SideEnvironment:
		return "environment"
	}
	return "unknown"
}

// Stats holds the attribute values usable in damage formulas.
type Stats struct {
	Strength     int `json:"strength" yaml:"strength"`
	Agility      int `json:"agility" yaml:"agility"`
	Technique    int `json:"technique" yaml:"technique"`
	Intelligence int `json:"intelligence" yaml:"intelligence"`
	Armor        int `json:"armor" yaml:"armor"`
	Level        int `json:"level" yaml:"level"`
}

// CombatFlags are transient per-battle flags. Only the EffectEngine reads
// or writes them.
type CombatFlags struct {
	// SpeedPenalty doubles the length of the actor's next action.
	SpeedPenalty bool
	Statuses     []Status
}

// Stunned reports whether an active stun status is present.
func (f *CombatFlags) Stunned() bool {
	for _, s := range f.Statuses {
		if s.Kind == StatusStun && s.Turns > 0 {
			return true
		}
	}
	return false
}

// Actor is any participant in a battle.
type Actor interface {
	Name() string
	Side() Side
	CurrentHealth() int
	MaxHealth() int
	SetHealth(v int)
	IsAlive() bool
	// BaseSpeed is the number of battle-clock units consumed per unit of
	// action length.
	BaseSpeed() float64
	Stats() Stats
	Flags() *CombatFlags
}

// Combatant is an actor that chooses actions from a combo sequence.
// Players and enemies are combatants; environments are not.
type Combatant interface {
	Actor
	ComboActions() []Action
	// ComboStep is the zero-based index of the next action in the sequence.
	ComboStep() int
	AdvanceCombo()
	ResetCombo()
	HealActions() []Action
}

// ---------------------------------------------------------------------------
//  baseActor: shared implementation for players, enemies and environments
// ---------------------------------------------------------------------------

type baseActor struct {
	name  string
	side  Side
	hp    int
	maxHP int
	speed float64
	stats Stats
	flags CombatFlags
}

func (b *baseActor) Name() string { return b.name }
func (b *baseActor) Side() Side { return b.side }
func (b *baseActor) CurrentHealth() int { return b.hp }
func (b *baseActor) MaxHealth() int { return b.maxHP }
func (b *baseActor) IsAlive() bool { return b.hp > 0 }
func (b *baseActor) BaseSpeed() float64 { return b.speed }
func (b *baseActor) Stats() Stats { return b.stats }
func (b *baseActor) Flags() *CombatFlags { return &b.flags }

// SetHealth clamps v to [0, MaxHealth].
func (b *baseActor) SetHealth(v int) {
	if v < 0 {
		v = 0
	}
	if v > b.maxHP {
		v = b.maxHP
	}
	b.hp = v
}

// fighter adds the combo sequence shared by players and enemies.
type fighter struct {
	baseActor
	combo []Action
	heals []Action
	step  int
}

func (f *fighter) ComboActions() []Action { return f.combo }
func (f *fighter) HealActions() []Action { return f.heals }
func (f *fighter) ComboStep() int { return f.step }
func (f *fighter) ResetCombo() { f.step = 0 }

func (f *fighter) AdvanceCombo() {
	if len(f.combo) == 0 {
		f.step = 0
		return
	}
	f.step = (f.step + 1) % len(f.combo)
}

func initialHealth(hp, maxHP int) int {
	if hp <= 0 || hp > maxHP {
		return maxHP
	}
	return hp
}

// ---------------------------------------------------------------------------
//  Player
// ---------------------------------------------------------------------------

// Player is the hero controlled by the caller.
type Player struct {
	fighter
}

// PlayerConfig holds the parameters for creating a Player.
type PlayerConfig struct {
	Name      string
	MaxHealth int
	Health    int // 0 = MaxHealth
	// Speed overrides the agility-derived base speed when positive.
	Speed float64
	Stats Stats
	Combo []Action
	Heals []Action
}

// DefaultPlayerSpeed is the base speed before the agility adjustment.
const DefaultPlayerSpeed = 10.0

// NewPlayer creates a Player. Without an explicit speed, base speed is
// DefaultPlayerSpeed / (1 + agility/100), never below 0.5.
func NewPlayer(cfg PlayerConfig) *Player {
	speed := cfg.Speed
	if speed <= 0 {
		speed = math.Max(0.5, DefaultPlayerSpeed/(1+float64(cfg.Stats.Agility)*0.01))
	}
	return &Player{fighter{
		baseActor: baseActor{
			name:  cfg.Name,
			side:  SidePlayer,
			hp:    initialHealth(cfg.Health, cfg.MaxHealth),
			maxHP: cfg.MaxHealth,
			speed: speed,
			stats: cfg.Stats,
		},
		combo: withDefaultCombo(cfg.Combo),
		heals: cfg.Heals,
	}}
}

// ---------------------------------------------------------------------------
//  Enemy
// ---------------------------------------------------------------------------

// Enemy is the hostile combatant.
type Enemy struct {
	fighter
}

// EnemyConfig holds the parameters for creating an Enemy.
type EnemyConfig struct {
	Name      string
	MaxHealth int
	Health    int
	Speed     float64 // 0 = DefaultEnemySpeed
	Stats     Stats
	Combo     []Action
	Heals     []Action
}

const DefaultEnemySpeed = 12.0

func NewEnemy(cfg EnemyConfig) *Enemy {
	speed := cfg.Speed
	if speed <= 0 {
		speed = DefaultEnemySpeed
	}
	return &Enemy{fighter{
		baseActor: baseActor{
			name:  cfg.Name,
			side:  SideEnemy,
			hp:    initialHealth(cfg.Health, cfg.MaxHealth),
			maxHP: cfg.MaxHealth,
			speed: speed,
			stats: cfg.Stats,
		},
		combo: withDefaultCombo(cfg.Combo),
		heals: cfg.Heals,
	}}
}

func withDefaultCombo(combo []Action) []Action {
	if len(combo) > 0 {
		return combo
	}
	return []Action{BasicAttack()}
}

// ---------------------------------------------------------------------------
//  Environment
// ---------------------------------------------------------------------------

// EnvironmentEffect is one hazard an environment may unleash.
type EnvironmentEffect struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Damage      int         `json:"damage" yaml:"damage"`
	Status      *StatusSpec `json:"status,omitempty" yaml:"status,omitempty"`
}

// Environment is the hostile location itself. It has no health and never dies.
type Environment struct {
	baseActor
	location  string
	actChance float64
	effects   []EnvironmentEffect
}

// EnvironmentConfig holds the parameters for creating an Environment.
type EnvironmentConfig struct {
	Name      string
	Location  string  // free-form label used for taunt theming; defaults to Name
	Speed     float64 // 0 = DefaultEnvironmentSpeed
	ActChance float64 // 0 = DefaultEnvironmentActChance
	Effects   []EnvironmentEffect
}

const (
	DefaultEnvironmentSpeed     = 15.0
	DefaultEnvironmentActChance = 0.3
)

func NewEnvironment(cfg EnvironmentConfig) *Environment {
	speed := cfg.Speed
	if speed <= 0 {
		speed = DefaultEnvironmentSpeed
	}
	chance := cfg.ActChance
	if chance <= 0 {
		chance = DefaultEnvironmentActChance
	}
	loc := cfg.Location
	if loc == "" {
		loc = cfg.Name
	}
	return &Environment{
		baseActor: baseActor{name: cfg.Name, side: SideEnvironment, speed: speed},
		location:  loc,
		actChance: chance,
		effects:   cfg.Effects,
	}
}

// IsAlive is always true: an environment cannot be defeated.
func (e *Environment) IsAlive() bool { return true }

// SetHealth is a no-op for environments.
func (e *Environment) SetHealth(int) {}

func (e *Environment) Location() string { return e.location }
func (e *Environment) ActChance() float64 { return e.actChance }
func (e *Environment) Effects() []EnvironmentEffect { return e.effects }

// HealthRatio returns current/max health, or 0 for actors without health.
func HealthRatio(a Actor) float64 {
	if a.MaxHealth() <= 0 {
		return 0
	}
	return float64(a.CurrentHealth()) / float64(a.MaxHealth())
}
