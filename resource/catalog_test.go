package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/dungeonfighter/game/battle"
	"github.com/kasuganosora/dungeonfighter/game/narrative"
)

const sampleCatalog = `
heroes:
  - name: Squire
    max_health: 50
    stats: {strength: 9, agility: 0, armor: 3}
    combo:
      - {name: Poke, kind: attack}
      - {name: Lunge, kind: attack, length: 1.5, status: {kind: bleed, turns: 2, magnitude: 1}}
    heals:
      - {name: Bandage, kind: heal, heal_amount: 5}
enemies:
  - name: Rat King
    max_health: 30
    speed: 8
    stats: {strength: 5, armor: 1}
environments:
  - name: Old Library
    location: dusty library
    act_chance: 0.5
    effects:
      - {name: Dust Cloud, description: Dust fills the air!, damage: 1}
narrative:
  firstBlood: "Blood on the books!"
`

func TestParseCatalog_Sample(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)

	h, ok := c.Hero("squire")
	require.True(t, ok)
	assert.Equal(t, 50, h.MaxHealth)
	require.Len(t, h.Combo, 2)
	assert.Equal(t, battle.ActionAttack, h.Combo[1].Kind)
	assert.Equal(t, 1.5, h.Combo[1].Length)
	require.NotNil(t, h.Combo[1].Status)
	assert.Equal(t, battle.StatusBleed, h.Combo[1].Status.Kind)
	assert.Equal(t, battle.ActionHeal, h.Heals[0].Kind)

	e, ok := c.Enemy("RAT KING")
	require.True(t, ok)
	assert.Equal(t, 8.0, e.Speed)

	env, ok := c.Environment(" old library ")
	require.True(t, ok)
	assert.Equal(t, narrative.CategoryLibrary, narrative.CategoryOf(env.Location))

	_, ok = c.Hero("Nobody")
	assert.False(t, ok)
}

func TestCatalog_TextOverrides(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	txt := c.Text()
	assert.Equal(t, "Blood on the books!", txt.Narrative("firstBlood"))
	assert.Contains(t, txt.Narrative("criticalHit"), "devastating blow")
}

func TestCatalog_BuildActors(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)

	h, _ := c.Hero("Squire")
	p := h.NewPlayer("Alice")
	assert.Equal(t, "Alice", p.Name())
	assert.Equal(t, 50, p.CurrentHealth())
	assert.Equal(t, battle.DefaultPlayerSpeed, p.BaseSpeed())
	assert.Len(t, p.ComboActions(), 2)

	// Actors own their action slices.
	p.ComboActions()[0].Name = "Changed"
	assert.Equal(t, "Poke", h.Combo[0].Name)

	assert.Equal(t, "Squire", h.NewPlayer("").Name())

	e, _ := c.Enemy("Rat King")
	orc := e.NewEnemy()
	assert.Equal(t, 8.0, orc.BaseSpeed())
	assert.Equal(t, "Strike", orc.ComboActions()[0].Name)

	envDef, _ := c.Environment("Old Library")
	env := envDef.NewEnvironment()
	assert.Equal(t, "dusty library", env.Location())
	assert.Equal(t, 0.5, env.ActChance())
	assert.Equal(t, battle.DefaultEnvironmentSpeed, env.BaseSpeed())
	assert.True(t, env.IsAlive())
}

func TestParseCatalog_Invalid(t *testing.T) {
	cases := map[string]string{
		"no name":       "heroes:\n  - max_health: 10\n",
		"no health":     "heroes:\n  - name: A\n",
		"duplicate":     "enemies:\n  - {name: A, max_health: 1}\n  - {name: a, max_health: 2}\n",
		"heal in combo": "heroes:\n  - name: A\n    max_health: 5\n    combo: [{name: X, kind: heal, heal_amount: 3}]\n",
		"empty heal":    "heroes:\n  - name: A\n    max_health: 5\n    heals: [{name: X, kind: heal}]\n",
		"chance":        "environments:\n  - {name: E, act_chance: 1.5}\n",
		"bad effect":    "environments:\n  - name: E\n    effects: [{name: F, damage: -1}]\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(src))
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}

	_, err := ParseCatalog([]byte("heroes:\n  - name: A\n    max_health: 5\n    combo: [{name: X, kind: dance}]\n"))
	assert.Error(t, err)
}

func TestLoadCatalog_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, Names{
		Heroes:       []string{"Squire"},
		Enemies:      []string{"Rat King"},
		Environments: []string{"Old Library"},
	}, c.Names())

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	n := c.Names()
	assert.Equal(t, []string{"Knight", "Mage", "Rogue"}, n.Heroes)
	assert.Equal(t, []string{"Goblin", "Lich", "Orc Warlord"}, n.Enemies)
	assert.Len(t, n.Environments, 5)

	lava, ok := c.Environment("lava forge")
	require.True(t, ok)
	assert.Equal(t, narrative.CategoryLava, narrative.CategoryOf(lava.Location))
	assert.Equal(t, 0.35, lava.ActChance)

	for _, name := range n.Environments {
		env, _ := c.Environment(name)
		assert.NotEmpty(t, env.Effects, name)
	}
}
