package narrative

import "strings"

// TextProvider resolves a narrative key to a template. Implementations must
// always return something usable; a miss falls back to generic text.
type TextProvider interface {
	Narrative(key string) string
}

// fallbackText is used when no override exists for a key.
var fallbackText = map[string]string{
	"firstBlood":          "The first drop of blood is drawn! The battle has truly begun.",
	"criticalHit":         "A devastating blow strikes true! The impact is felt throughout the battlefield.",
	"criticalMiss":        "A wild swing misses completely! The attack goes wide of its target.",
	"environmentalAction": "The environment itself joins the fray! {effect}",
	"healthLeadChange":    "The tide of battle shifts! {name} now holds the advantage!",
	"escalatingTension":   "The battle grows more desperate with each passing moment!",
	"healthRecovery":      "{name} feels renewed strength flowing through their veins.",
	"below50Percent":      "{name} staggers under the weight of their injuries, but refuses to yield!",
	"below10Percent":      "{name} is on the brink of collapse, but their will to fight remains unbroken!",
	"playerDefeated":      "You collapse to the ground, your strength finally exhausted.",
	"enemyDefeated":       "{name} falls to the ground, defeated at last!",
	"intenseBattle":       "The battle reaches a fever pitch as both {player} and {enemy} stand bloodied but unbroken!",

	"playerTaunt": "\"{enemy}, you're no match for me!\" {name} declares confidently.",
	"enemyTaunt":  "\"You cannot defeat me, {player}!\" {name} growls menacingly.",

	"playerTaunt_library":    "\"Shh! We're in a library!\" {name} whispers fiercely to {enemy}.",
	"enemyTaunt_library":     "\"Silence! This sacred place demands respect!\" {name} hisses at {player}.",
	"playerTaunt_underwater": "*Bubbles escape {name}'s mouth as they gesture threateningly at {enemy}.*",
	"enemyTaunt_underwater":  "*{name} makes aggressive gestures, bubbles streaming from their mouth.*",
	"playerTaunt_lava":       "\"The heat won't save you, {enemy}!\" {name} shouts over the roaring flames.",
	"enemyTaunt_lava":        "\"You'll burn before you defeat me, {player}!\" {name} roars through the inferno.",
	"playerTaunt_crypt":      "\"You belong here with the dead, {enemy}!\" {name} declares in the echoing tomb.",
	"enemyTaunt_crypt":       "\"Join the others in eternal rest, {player}!\" {name} intones ominously.",
	"playerTaunt_crystal":    "\"Your fate is crystal clear, {enemy}!\" {name} shouts, voice echoing off the gems.",
	"enemyTaunt_crystal":     "\"You'll shatter like glass, {player}!\" {name} bellows in the crystalline chamber.",
	"playerTaunt_temple":     "\"The gods favor me, not you, {enemy}!\" {name} proclaims in the sacred hall.",
	"enemyTaunt_temple":      "\"Your blasphemy ends here, {player}!\" {name} thunders in the holy sanctuary.",
	"playerTaunt_forest":     "\"The forest itself will aid me against you, {enemy}!\" {name} calls to the trees.",
	"enemyTaunt_forest":      "\"Nature's wrath will consume you, {player}!\" {name} growls among the ancient oaks.",

	"default": "A significant event occurs in the battle.",
}

const (
	playerGoodComboText = "{player} unleashes a devastating combo sequence! Each strike flows into the next with deadly precision!"
	enemyGoodComboText  = "{enemy} demonstrates masterful technique with a brutal combo that leaves {player} reeling!"
)

// Table is the default TextProvider: catalog overrides first, then the
// built-in fallback table.
type Table struct {
	overrides map[string]string
}

func NewTable(overrides map[string]string) *Table {
	m := make(map[string]string, len(overrides))
	for k, v := range overrides {
		if v != "" {
			m[k] = v
		}
	}
	return &Table{overrides: m}
}

// Narrative never returns an empty string.
func (t *Table) Narrative(key string) string {
	if t != nil {
		if v, ok := t.overrides[key]; ok {
			return v
		}
	}
	if v, ok := fallbackText[key]; ok {
		return v
	}
	return fallbackText["default"]
}

// Has reports whether key resolves to something other than the generic
// default text.
func (t *Table) Has(key string) bool {
	if t != nil {
		if _, ok := t.overrides[key]; ok {
			return true
		}
	}
	_, ok := fallbackText[key]
	return ok
}

// Fill replaces {placeholder} tokens in tmpl. Unknown placeholders are left
// as they are.
func Fill(tmpl string, repl map[string]string) string {
	if len(repl) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(repl)*2)
	for k, v := range repl {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
