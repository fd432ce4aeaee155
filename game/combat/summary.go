package combat

import (
	"fmt"

	"github.com/kasuganosora/dungeonfighter/game/battle"
)

// Tally accumulates successful damage and combos per side.
type Tally struct {
	PlayerDamage int `json:"player_damage"`
	EnemyDamage  int `json:"enemy_damage"`
	PlayerCombos int `json:"player_combos"`
	EnemyCombos  int `json:"enemy_combos"`
}

// Record counts evt if it was a success by the player or the enemy.
// Environment actions are never tallied.
func (t *Tally) Record(evt battle.BattleEvent) {
	if !evt.Success {
		return
	}
	switch evt.ActorSide {
	case battle.SidePlayer:
		t.PlayerDamage += evt.Damage
		if evt.IsCombo {
			t.PlayerCombos++
		}
	case battle.SideEnemy:
		t.EnemyDamage += evt.Damage
		if evt.IsCombo {
			t.EnemyCombos++
		}
	}
}

// Outcome of a finished battle as seen by the summary.
type Outcome string

const (
	OutcomePlayerWon Outcome = "player_won"
	OutcomeEnemyWon  Outcome = "enemy_won"
	OutcomeStalemate Outcome = "stalemate"
)

// Decide returns the outcome for the final health values. An enemy at zero
// counts as a player win even if the player fell too.
func Decide(playerHealth, enemyHealth int) Outcome {
	switch {
	case enemyHealth <= 0:
		return OutcomePlayerWon
	case playerHealth <= 0:
		return OutcomeEnemyWon
	}
	return OutcomeStalemate
}

// Summarize renders the end-of-battle summary. Downstream consumers match
// these shapes literally.
func Summarize(player, enemy string, playerHealth, enemyHealth int, t Tally, withDamage bool) string {
	switch Decide(playerHealth, enemyHealth) {
	case OutcomePlayerWon:
		combos := fmt.Sprintf("Combos executed: %d vs %d.", t.PlayerCombos, t.EnemyCombos)
		if !withDamage {
			return combos
		}
		return fmt.Sprintf("Total damage dealt: %d vs %d received.\n", t.PlayerDamage, t.EnemyDamage) + combos
	case OutcomeEnemyWon:
		return fmt.Sprintf("%s defeats %s!\nTotal damage dealt: %d vs %d received.\nCombos executed: %d vs %d.",
			enemy, player, t.EnemyDamage, t.PlayerDamage, t.EnemyCombos, t.PlayerCombos)
	}
	return fmt.Sprintf("Battle ends in a stalemate. %s dealt %d damage, %s dealt %d damage.\nCombos: %d vs %d.",
		player, t.PlayerDamage, enemy, t.EnemyDamage, t.PlayerCombos, t.EnemyCombos)
}
