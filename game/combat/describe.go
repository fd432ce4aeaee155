package combat

import (
	"fmt"
	"strings"

	"github.com/kasuganosora/dungeonfighter/game/battle"
)

// describe renders the combat line for a resolved event.
func describe(evt battle.BattleEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", evt.Actor)

	switch {
	case evt.EnvironmentEffect != "":
		fmt.Fprintf(&b, "%s: %s", evt.Action, evt.EnvironmentEffect)
		if evt.Damage > 0 {
			fmt.Fprintf(&b, " %s takes %d damage.", evt.Target, evt.Damage)
		}
	case evt.IsHeal:
		fmt.Fprintf(&b, "uses %s and recovers %d health.", evt.Action, evt.HealAmount)
	case evt.ActorSide == evt.TargetSide:
		fmt.Fprintf(&b, "uses %s but it fails.", evt.Action)
	case !evt.Success && evt.Roll == 1:
		fmt.Fprintf(&b, "uses %s on %s but fumbles badly!", evt.Action, evt.Target)
	case !evt.Success:
		fmt.Fprintf(&b, "uses %s on %s but misses.", evt.Action, evt.Target)
	default:
		fmt.Fprintf(&b, "uses %s on %s for %d damage.", evt.Action, evt.Target, evt.Damage)
		if evt.Critical {
			b.WriteString(" Critical hit!")
		}
		if evt.IsCombo && evt.ComboStep > 1 {
			fmt.Fprintf(&b, " Combo x%d!", evt.ComboStep)
		}
	}
	if evt.Roll > 0 {
		fmt.Fprintf(&b, " (roll %d)", evt.Roll)
	}
	return b.String()
}
