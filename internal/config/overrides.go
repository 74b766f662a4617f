package config

// Overrides carries command-line values; zero fields keep the loaded value.
type Overrides struct {
	Repository   string
	Variant      string
	BugLabel     string
	LookbackDays int
	MaxIssues    int
	Workers      int
	OutputDir    string
	GHBinary     string
	RulesFile    string
	// Chart enables the chart page; false keeps the loaded setting.
	Chart bool
}

// applyPositive sets *dst = value when value is positive.
func applyPositive(dst *int, value int) {
	if value > 0 {
		*dst = value
	}
}

// applyNonEmpty sets *dst = value when value is non-empty.
func applyNonEmpty(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// Apply merges the overrides into cfg. A nil receiver is a no-op.
func (o *Overrides) Apply(cfg *Config) {
	if o == nil {
		return
	}

	applyNonEmpty(&cfg.Repository, o.Repository)
	applyNonEmpty(&cfg.Variant, o.Variant)
	applyNonEmpty(&cfg.BugLabel, o.BugLabel)
	applyPositive(&cfg.LookbackDays, o.LookbackDays)
	applyPositive(&cfg.MaxIssues, o.MaxIssues)
	applyPositive(&cfg.Pipeline.Workers, o.Workers)
	applyNonEmpty(&cfg.Output.Dir, o.OutputDir)
	applyNonEmpty(&cfg.GH.Binary, o.GHBinary)
	applyNonEmpty(&cfg.Rules.File, o.RulesFile)

	if o.Chart {
		cfg.Output.Chart = true
	}
}
