package narrative

// Kind identifies which trigger produced a narrative line. The string value
// doubles as the text-table key for kinds that have one.
type Kind string

const (
	KindFirstBlood          Kind = "firstBlood"
	KindCriticalHit         Kind = "criticalHit"
	KindCriticalMiss        Kind = "criticalMiss"
	KindEnvironmentalAction Kind = "environmentalAction"
	KindHealthRecovery      Kind = "healthRecovery"
	KindHealthLeadChange    Kind = "healthLeadChange"
	KindPlayerTaunt         Kind = "playerTaunt"
	KindEnemyTaunt          Kind = "enemyTaunt"
	KindBelow50Percent      Kind = "below50Percent"
	KindBelow10Percent      Kind = "below10Percent"
	KindIntenseBattle       Kind = "intenseBattle"
	KindGoodCombo           Kind = "goodCombo"
	KindPlayerDefeated      Kind = "playerDefeated"
	KindEnemyDefeated       Kind = "enemyDefeated"
)

// OneShot reports whether the kind fires at most once per battle for a
// given subject.
func (k Kind) OneShot() bool {
	switch k {
	case KindFirstBlood, KindEnvironmentalAction, KindBelow50Percent, KindBelow10Percent,
		KindIntenseBattle, KindGoodCombo, KindPlayerDefeated, KindEnemyDefeated:
		return true
	}
	return false
}

// Line is one narrative line with the trigger that produced it.
type Line struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
	// Subject is the name the line is about, when it is about one side.
	Subject string `json:"subject,omitempty"`
}
