package narrative

// MaxTaunts is the number of taunts each side may make per battle.
const MaxTaunts = 2

// Leader is the side with strictly more current health.
type Leader int

const (
	LeaderNone Leader = iota
	LeaderPlayer
	LeaderEnemy
)

func (l Leader) String() string {
	switch l {
	case LeaderPlayer:
		return "player"
	case LeaderEnemy:
		return "enemy"
	}
	return "none"
}

// State holds the one-shot flags and counters of a single battle. Flags are
// only ever set during a battle; a new battle gets a new State.
type State struct {
	FirstBlood          bool
	GoodCombo           bool
	IntenseBattle       bool
	EnvironmentalAction bool
	PlayerDefeated      bool
	EnemyDefeated       bool
	PlayerBelow50       bool
	PlayerBelow10       bool
	EnemyBelow50        bool
	EnemyBelow10        bool

	// RecentCriticalHitNarrative suppresses the next eligible critical-hit
	// narrative. See ClearCriticalCooldown.
	RecentCriticalHitNarrative bool

	// Leader is the last recorded health leader. Holding the lead on one
	// side excludes the other.
	Leader Leader

	PlayerActionCount   int
	EnemyActionCount    int
	PlayerTauntCount    int
	EnemyTauntCount     int
	NarrativeEventCount int
}

// NewState returns a zeroed state for a new battle.
func NewState() *State {
	return &State{}
}

func (s *State) HasPlayerHealthLead() bool { return s.Leader == LeaderPlayer }
func (s *State) HasEnemyHealthLead() bool  { return s.Leader == LeaderEnemy }

func (s *State) CanPlayerTaunt() bool { return s.PlayerTauntCount < MaxTaunts }
func (s *State) CanEnemyTaunt() bool  { return s.EnemyTauntCount < MaxTaunts }

// ClearCriticalCooldown re-opens the critical-hit narrative window.
func (s *State) ClearCriticalCooldown() {
	s.RecentCriticalHitNarrative = false
}
