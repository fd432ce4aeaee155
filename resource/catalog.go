// Package resource loads the fighter catalog: heroes, enemies, environments
// and narrative text overrides, from YAML.
package resource

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kasuganosora/dungeonfighter/game/battle"
	"github.com/kasuganosora/dungeonfighter/game/narrative"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// ErrInvalidCatalog wraps every validation failure.
var ErrInvalidCatalog = errors.New("resource: invalid catalog")

// ---- Catalog Data Structures ----

// FighterDef describes a hero or an enemy.
type FighterDef struct {
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	MaxHealth   int             `yaml:"max_health" json:"max_health"`
	Speed       float64         `yaml:"speed,omitempty" json:"speed,omitempty"`
	Stats       battle.Stats    `yaml:"stats" json:"stats"`
	Combo       []battle.Action `yaml:"combo" json:"combo"`
	Heals       []battle.Action `yaml:"heals,omitempty" json:"heals,omitempty"`
	// Thresholds overrides the d20 boundaries; zero fields keep the defaults.
	Thresholds battle.Thresholds `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
}

// EnvironmentDef describes a battle location.
type EnvironmentDef struct {
	Name        string                     `yaml:"name" json:"name"`
	Description string                     `yaml:"description,omitempty" json:"description,omitempty"`
	Location    string                     `yaml:"location,omitempty" json:"location,omitempty"`
	Speed       float64                    `yaml:"speed,omitempty" json:"speed,omitempty"`
	ActChance   float64                    `yaml:"act_chance,omitempty" json:"act_chance,omitempty"`
	Effects     []battle.EnvironmentEffect `yaml:"effects" json:"effects"`
}

// Catalog is the parsed catalog. Lookups are case-insensitive.
type Catalog struct {
	Heroes       []*FighterDef     `yaml:"heroes"`
	Enemies      []*FighterDef     `yaml:"enemies"`
	Environments []*EnvironmentDef `yaml:"environments"`
	// Narrative overrides entries of the built-in narrative text table.
	Narrative map[string]string `yaml:"narrative"`

	heroes       map[string]*FighterDef
	enemies      map[string]*FighterDef
	environments map[string]*EnvironmentDef
}

// Names lists the catalog entries by kind.
type Names struct {
	Heroes       []string `json:"heroes"`
	Enemies      []string `json:"enemies"`
	Environments []string `json:"environments"`
}

// LoadCatalog reads and parses a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resource: read %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("resource: parse %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes YAML and validates the result.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("resource: built-in catalog: %v", err))
	}
	return c
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (c *Catalog) index() error {
	c.heroes = make(map[string]*FighterDef, len(c.Heroes))
	c.enemies = make(map[string]*FighterDef, len(c.Enemies))
	c.environments = make(map[string]*EnvironmentDef, len(c.Environments))

	for _, h := range c.Heroes {
		if err := indexFighter(c.heroes, "hero", h); err != nil {
			return err
		}
	}
	for _, e := range c.Enemies {
		if err := indexFighter(c.enemies, "enemy", e); err != nil {
			return err
		}
	}
	for _, env := range c.Environments {
		if env == nil || key(env.Name) == "" {
			return fmt.Errorf("%w: environment without a name", ErrInvalidCatalog)
		}
		k := key(env.Name)
		if _, dup := c.environments[k]; dup {
			return fmt.Errorf("%w: duplicate environment %q", ErrInvalidCatalog, env.Name)
		}
		if env.ActChance < 0 || env.ActChance > 1 {
			return fmt.Errorf("%w: environment %q act_chance %v outside [0,1]", ErrInvalidCatalog, env.Name, env.ActChance)
		}
		for _, eff := range env.Effects {
			if eff.Name == "" || eff.Damage < 0 {
				return fmt.Errorf("%w: environment %q has a bad effect", ErrInvalidCatalog, env.Name)
			}
		}
		c.environments[k] = env
	}
	return nil
}

func indexFighter(into map[string]*FighterDef, kind string, f *FighterDef) error {
	if f == nil || key(f.Name) == "" {
		return fmt.Errorf("%w: %s without a name", ErrInvalidCatalog, kind)
	}
	k := key(f.Name)
	if _, dup := into[k]; dup {
		return fmt.Errorf("%w: duplicate %s %q", ErrInvalidCatalog, kind, f.Name)
	}
	if f.MaxHealth <= 0 {
		return fmt.Errorf("%w: %s %q needs max_health > 0", ErrInvalidCatalog, kind, f.Name)
	}
	for _, a := range f.Combo {
		if a.Kind != battle.ActionAttack {
			return fmt.Errorf("%w: %s %q combo action %q must be an attack", ErrInvalidCatalog, kind, f.Name, a.Name)
		}
	}
	for _, a := range f.Heals {
		if a.Kind != battle.ActionHeal || a.HealAmount <= 0 {
			return fmt.Errorf("%w: %s %q heal %q needs kind heal and heal_amount > 0", ErrInvalidCatalog, kind, f.Name, a.Name)
		}
	}
	into[k] = f
	return nil
}

// Hero looks up a hero by name.
func (c *Catalog) Hero(name string) (*FighterDef, bool) {
	h, ok := c.heroes[key(name)]
	return h, ok
}

// Enemy looks up an enemy by name.
func (c *Catalog) Enemy(name string) (*FighterDef, bool) {
	e, ok := c.enemies[key(name)]
	return e, ok
}

// Environment looks up an environment by name.
func (c *Catalog) Environment(name string) (*EnvironmentDef, bool) {
	e, ok := c.environments[key(name)]
	return e, ok
}

// Names returns the sorted entry names.
func (c *Catalog) Names() Names {
	n := Names{
		Heroes:       make([]string, 0, len(c.Heroes)),
		Enemies:      make([]string, 0, len(c.Enemies)),
		Environments: make([]string, 0, len(c.Environments)),
	}
	for _, h := range c.Heroes {
		n.Heroes = append(n.Heroes, h.Name)
	}
	for _, e := range c.Enemies {
		n.Enemies = append(n.Enemies, e.Name)
	}
	for _, e := range c.Environments {
		n.Environments = append(n.Environments, e.Name)
	}
	sort.Strings(n.Heroes)
	sort.Strings(n.Enemies)
	sort.Strings(n.Environments)
	return n
}

// Text returns the narrative text provider with this catalog's overrides.
func (c *Catalog) Text() *narrative.Table {
	return narrative.NewTable(c.Narrative)
}

// ---- Actor construction ----

// NewPlayer builds a fresh Player from the definition. displayName replaces
// the catalog name when non-empty.
func (f *FighterDef) NewPlayer(displayName string) *battle.Player {
	name := f.Name
	if displayName != "" {
		name = displayName
	}
	return battle.NewPlayer(battle.PlayerConfig{
		Name:      name,
		MaxHealth: f.MaxHealth,
		Speed:     f.Speed,
		Stats:     f.Stats,
		Combo:     cloneActions(f.Combo),
		Heals:     cloneActions(f.Heals),
	})
}

// NewEnemy builds a fresh Enemy from the definition.
func (f *FighterDef) NewEnemy() *battle.Enemy {
	return battle.NewEnemy(battle.EnemyConfig{
		Name:      f.Name,
		MaxHealth: f.MaxHealth,
		Speed:     f.Speed,
		Stats:     f.Stats,
		Combo:     cloneActions(f.Combo),
		Heals:     cloneActions(f.Heals),
	})
}

// NewEnvironment builds a fresh Environment from the definition.
func (e *EnvironmentDef) NewEnvironment() *battle.Environment {
	effects := make([]battle.EnvironmentEffect, len(e.Effects))
	copy(effects, e.Effects)
	return battle.NewEnvironment(battle.EnvironmentConfig{
		Name:      e.Name,
		Location:  e.Location,
		Speed:     e.Speed,
		ActChance: e.ActChance,
		Effects:   effects,
	})
}

func cloneActions(in []battle.Action) []battle.Action {
	if len(in) == 0 {
		return nil
	}
	out := make([]battle.Action, len(in))
	copy(out, in)
	return out
}
