package narrative

// Settings is the read-only configuration snapshot passed into every
// Analyze call. The evaluator never reads settings from anywhere else.
type Settings struct {
	// NarrativeBalance in [0,1] scales taunt thresholds and the critical-hit
	// narrative gate. Higher values mean more commentary.
	NarrativeBalance float64 `json:"narrative_balance" yaml:"narrative_balance"`
	// EnableNarrativeEvents false suppresses all narrative output.
	EnableNarrativeEvents bool `json:"enable_narrative_events" yaml:"enable_narrative_events"`
}

// DefaultSettings returns balance 0.5 with narrative enabled.
func DefaultSettings() Settings {
	return Settings{NarrativeBalance: 0.5, EnableNarrativeEvents: true}
}

// Balance returns NarrativeBalance clamped to [0,1].
func (s Settings) Balance() float64 {
	switch {
	case s.NarrativeBalance < 0:
		return 0
	case s.NarrativeBalance > 1:
		return 1
	}
	return s.NarrativeBalance
}
