package domain

// Config mirrors ~/.dexter/config.yaml.
type Config struct {
	ConfigFormatVersion string          `yaml:"config_format_version"`
	Preferences         Preferences     `yaml:"preferences"`
	Context             ContextSettings `yaml:"context"`
	Safety              SafetySettings  `yaml:"safety"`
	History             HistorySettings `yaml:"history"`
	Providers           []Provider      `yaml:"providers"`
	Models              []Model         `yaml:"models"`
}

// Preferences captures user level toggles that the wizard does not touch.
type Preferences struct {
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
	MaxOutputBytes        int     `yaml:"max_output_bytes"`
	MaxTokens             int     `yaml:"max_tokens"`
	RouterMinConfidence   float64 `yaml:"router_min_confidence"`
	MaxClarifyRounds      int     `yaml:"max_clarify_rounds"`
}

// ContextSettings bounds the working directory scan.
type ContextSettings struct {
	MaxFiles int `yaml:"max_files"`
	MaxDepth int `yaml:"max_depth"`
}

// SafetySettings points at optional extra deny rules.
type SafetySettings struct {
	RulesFile string `yaml:"rules_file"`
}

// HistorySettings controls ExecutionRecord persistence.
type HistorySettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Clone returns a deep copy so callers can hold the value as an immutable snapshot.
func (c Config) Clone() Config {
	out := c
	if c.Providers != nil {
		out.Providers = append([]Provider(nil), c.Providers...)
	}
	if c.Models != nil {
		out.Models = append([]Model(nil), c.Models...)
	}
	return out
}
