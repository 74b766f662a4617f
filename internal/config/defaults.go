package config

// Scope defaults.
const (
	DefaultVariant      = "all"
	DefaultBugLabel     = "type-bug"
	DefaultLookbackDays = 30
	DefaultMaxIssues    = 1000
)

// Output defaults. Empty file names are derived from the repository,
// variant and lookback window.
const (
	DefaultOutputDir      = "reports"
	DefaultOutputMarkdown = ""
	DefaultOutputXLSX     = ""
	DefaultOutputChart    = false
)

// Pipeline defaults.
const (
	DefaultPipelineWorkers = 0
)

// Retrieval defaults.
const (
	DefaultGHBinary = "gh"
)
