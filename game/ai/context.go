package ai

import "math/rand"

// Option is one action an AI may choose, identified by its index in the
// caller's action list.
type Option struct {
	Index  int
	Name   string
	Tag    string // "attack", "heal", "finisher", ...
	Weight int
}

// AIContext is passed to every behavior tree node during a tick. It carries
// a read-only view of the fight and receives the chosen option.
type AIContext struct {
	SelfHealth    int
	SelfMaxHealth int
	FoeHealth     int
	FoeMaxHealth  int
	// ActionCount is how many actions this actor has taken so far.
	ActionCount int
	Options     []Option
	RNG         *rand.Rand

	// Chosen is the index into Options picked by the tree, or -1.
	Chosen int
}

// NewContext returns a context with nothing chosen yet.
func NewContext(rng *rand.Rand, opts []Option) *AIContext {
	return &AIContext{Options: opts, RNG: rng, Chosen: -1}
}

// SelfRatio is current/max health of the deciding actor.
func (c *AIContext) SelfRatio() float64 {
	if c.SelfMaxHealth <= 0 {
		return 0
	}
	return float64(c.SelfHealth) / float64(c.SelfMaxHealth)
}

// FoeRatio is current/max health of its opponent.
func (c *AIContext) FoeRatio() float64 {
	if c.FoeMaxHealth <= 0 {
		return 0
	}
	return float64(c.FoeHealth) / float64(c.FoeMaxHealth)
}

// Tagged returns the options carrying tag.
func (c *AIContext) Tagged(tag string) []Option {
	var out []Option
	for _, o := range c.Options {
		if o.Tag == tag {
			out = append(out, o)
		}
	}
	return out
}

// WeightedPick selects one option with probability proportional to its
// weight. Options with weight <= 0 count as weight 1.
func WeightedPick(opts []Option, rng *rand.Rand) (Option, bool) {
	if len(opts) == 0 {
		return Option{}, false
	}
	if len(opts) == 1 || rng == nil {
		return opts[0], true
	}
	total := 0
	for _, o := range opts {
		total += weightOf(o)
	}
	r := rng.Intn(total)
	for _, o := range opts {
		r -= weightOf(o)
		if r < 0 {
			return o, true
		}
	}
	return opts[len(opts)-1], true
}

func weightOf(o Option) int {
	if o.Weight <= 0 {
		return 1
	}
	return o.Weight
}
