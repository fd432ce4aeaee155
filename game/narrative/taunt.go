package narrative

import "strings"

// Category is a coarse location theme used to pick taunt variants.
type Category string

const (
	CategoryLibrary    Category = "library"
	CategoryUnderwater Category = "underwater"
	CategoryLava       Category = "lava"
	CategoryCrypt      Category = "crypt"
	CategoryCrystal    Category = "crystal"
	CategoryTemple     Category = "temple"
	CategoryForest     Category = "forest"
	CategoryGeneric    Category = "generic"
)

// Checked in order; the first category with a matching substring wins.
var categoryKeywords = []struct {
	cat   Category
	words []string
}{
	{CategoryLibrary, []string{"library", "study", "archive"}},
	{CategoryUnderwater, []string{"water", "ocean", "sea", "underwater"}},
	{CategoryLava, []string{"lava", "volcano", "fire"}},
	{CategoryCrypt, []string{"crypt", "tomb", "grave"}},
	{CategoryCrystal, []string{"crystal", "cave"}},
	{CategoryTemple, []string{"temple", "sanctuary"}},
	{CategoryForest, []string{"forest", "grove"}},
}

// CategoryOf maps a free-form location name to its category.
func CategoryOf(location string) Category {
	loc := strings.ToLower(location)
	for _, ck := range categoryKeywords {
		for _, w := range ck.words {
			if strings.Contains(loc, w) {
				return ck.cat
			}
		}
	}
	return CategoryGeneric
}

// Role is the side making the taunt.
type Role int

const (
	RolePlayer Role = iota
	RoleEnemy
)

// TauntThresholds returns the action counts a side must reach before its
// first and second taunt.
func TauntThresholds(role Role, balance float64) [MaxTaunts]int {
	if role == RolePlayer {
		return [MaxTaunts]int{8 + int(balance*4), 15 + int(balance*5)}
	}
	return [MaxTaunts]int{6 + int(balance*4), 12 + int(balance*6)}
}

// TauntDue reports whether a side with the given action and taunt counts
// may taunt now.
func TauntDue(role Role, actions, taunts int, balance float64) bool {
	if taunts < 0 || taunts >= MaxTaunts {
		return false
	}
	return actions >= TauntThresholds(role, balance)[taunts]
}

// TauntSelector builds taunt text. It holds no battle state.
type TauntSelector struct {
	Text TextProvider
}

type keyChecker interface {
	Has(key string) bool
}

// Select returns the taunt for role at location. name is the taunting
// actor, foe the one being taunted.
func (ts TauntSelector) Select(location string, role Role, name, foe string) string {
	base, foeKey := string(KindPlayerTaunt), "enemy"
	if role == RoleEnemy {
		base, foeKey = string(KindEnemyTaunt), "player"
	}

	text := ts.Text
	if text == nil {
		text = NewTable(nil)
	}
	key := base
	if cat := CategoryOf(location); cat != CategoryGeneric {
		themed := base + "_" + string(cat)
		if kc, ok := text.(keyChecker); !ok || kc.Has(themed) {
			key = themed
		}
	}
	return Fill(text.Narrative(key), map[string]string{"name": name, foeKey: foe})
}
