package battle

// BattleEvent is the record of one resolved action. It is built once and
// passed by value; nothing mutates it afterwards.
//
// Names are for display only. A guest may share a name with the enemy or
// the environment, so consumers attribute the event by ActorSide.
type BattleEvent struct {
	Actor      string `json:"actor"`
	Target     string `json:"target"`
	ActorSide  Side   `json:"actor_side"`
	TargetSide Side   `json:"target_side"`
	Action     string `json:"action"`

	Damage   int  `json:"damage"`
	Success  bool `json:"success"`
	Critical bool `json:"critical"`
	Roll     int  `json:"roll"`

	IsCombo   bool `json:"is_combo"`
	ComboStep int  `json:"combo_step"`

	IsHeal     bool `json:"is_heal"`
	HealAmount int  `json:"heal_amount"`

	EnvironmentEffect string `json:"environment_effect,omitempty"`

	ActorHealthBefore  int `json:"actor_health_before"`
	ActorHealthAfter   int `json:"actor_health_after"`
	TargetHealthBefore int `json:"target_health_before"`
	TargetHealthAfter  int `json:"target_health_after"`

	// Time is the battle clock when the action resolved.
	Time float64 `json:"time"`
}

// Snapshot is a point-in-time view of an actor, used in results and reports.
type Snapshot struct {
	Name      string  `json:"name"`
	Side      string  `json:"side"`
	Health    int     `json:"health"`
	MaxHealth int     `json:"max_health"`
	Speed     float64 `json:"speed"`
}

func SnapshotActor(a Actor) Snapshot {
	return Snapshot{
		Name:      a.Name(),
		Side:      a.Side().String(),
		Health:    a.CurrentHealth(),
		MaxHealth: a.MaxHealth(),
		Speed:     a.BaseSpeed(),
	}
}
