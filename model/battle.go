package model

import (
	"time"

	"gorm.io/datatypes"
)

// Battle outcomes as stored in BattleReport.Outcome.
const (
	OutcomePlayerWon = "player_won"
	OutcomeEnemyWon  = "enemy_won"
	OutcomeStalemate = "stalemate"
)

// BattleLine is one emitted line of a battle log.
type BattleLine struct {
	Seq     int     `json:"seq"`
	Kind    string  `json:"kind"`
	Text    string  `json:"text"`
	Trigger string  `json:"trigger,omitempty"`
	Time    float64 `json:"time"`
	Turn    int     `json:"turn"`
}

// BattleReport records one finished battle.
type BattleReport struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	TraceID     string `gorm:"size:36" json:"trace_id,omitempty"`
	PlayerName  string `gorm:"index:idx_report_player;size:64;not null" json:"player_name"`
	Hero        string `gorm:"size:64;not null" json:"hero"`
	Enemy       string `gorm:"size:64;not null" json:"enemy"`
	Environment string `gorm:"size:64" json:"environment,omitempty"`
	Location    string `gorm:"size:64" json:"location,omitempty"`
	Seed        int64  `json:"seed"`

	Outcome             string  `gorm:"index:idx_report_outcome;size:16;not null" json:"outcome"`
	PlayerSurvived      bool    `json:"player_survived"`
	Turns               int     `json:"turns"`
	Actions             int     `json:"actions"`
	Iterations          int     `json:"iterations"`
	Aborted             string  `gorm:"size:128" json:"aborted,omitempty"`
	NarrativeEventCount int     `json:"narrative_event_count"`
	PlayerDamage        int     `json:"player_damage"`
	EnemyDamage         int     `json:"enemy_damage"`
	PlayerCombos        int     `json:"player_combos"`
	EnemyCombos         int     `json:"enemy_combos"`
	PlayerHealth        int     `json:"player_health"`
	EnemyHealth         int     `json:"enemy_health"`
	Duration            float64 `json:"duration"`

	Summary   string                           `gorm:"type:text" json:"summary"`
	Lines     datatypes.JSONType[[]BattleLine] `json:"lines"`
	CreatedAt time.Time                        `gorm:"index:idx_report_created;autoCreateTime:milli" json:"created_at"`
}
