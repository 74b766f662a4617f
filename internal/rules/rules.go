// Package rules loads the heuristic regex tables that drive field
// extraction and issue classification.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Sentinel errors for rule loading.
var (
	// ErrInvalidPattern indicates a rule pattern failed to compile.
	ErrInvalidPattern = errors.New("invalid rule pattern")
	// ErrMissingFallback indicates a rule table has no fallback value.
	ErrMissingFallback = errors.New("rule table requires a fallback")
	// ErrMissingMockBase indicates the mocks table lacks its base template.
	ErrMissingMockBase = errors.New("mocks.base must contain one %s verb")
)

// Rule pairs a compiled pattern with the value it yields.
type Rule struct {
	Pattern *regexp.Regexp
	Value   string
}

// Table is an ordered first-match-wins rule list with a fallback value.
type Table struct {
	Rules    []Rule
	Fallback string
}

// Match returns the value of the first rule matching the lowercased text.
func (t Table) Match(text string) (string, bool) {
	lowered := strings.ToLower(text)

	for _, rule := range t.Rules {
		if rule.Pattern.MatchString(lowered) {
			return rule.Value, true
		}
	}

	return "", false
}

// Resolve returns the first matching value, or the fallback.
func (t Table) Resolve(text string) string {
	value, ok := t.Match(text)
	if !ok {
		return t.Fallback
	}

	return value
}

// Patterns is a set of alternative triggers.
type Patterns []*regexp.Regexp

// Any reports whether any pattern matches the lowercased text.
func (p Patterns) Any(text string) bool {
	_, ok := p.First(text)

	return ok
}

// First returns the first matched substring of the lowercased text.
func (p Patterns) First(text string) (string, bool) {
	lowered := strings.ToLower(text)

	for _, pattern := range p {
		if loc := pattern.FindStringIndex(lowered); loc != nil {
			return lowered[loc[0]:loc[1]], true
		}
	}

	return "", false
}

// Set holds every rule table used by the pipeline.
type Set struct {
	ComponentHints Table
	Assertions     Table
	Mocks          Table
	// MockBase is a format string with one %s verb receiving the component hint.
	MockBase string
	NeedsE2E Patterns

	PathRoots     []string
	MaxPathLength int

	Admin            Patterns
	NonBug           Patterns
	Duplicate        Patterns
	ExternalTracking Patterns
	BugSignalLabels  []string

	APIKeywords    Patterns
	MobileKeywords Patterns

	BotAuthorSuffixes []string
	// BotAuthorLogins are automated accounts gh reports without a bot suffix.
	BotAuthorLogins []string
}

type tableFile struct {
	Fallback string     `yaml:"fallback"`
	Rules    []ruleFile `yaml:"rules"`
}

type ruleFile struct {
	Pattern string `yaml:"pattern"`
	Value   string `yaml:"value"`
}

type setFile struct {
	ComponentHints tableFile `yaml:"component_hints"`
	Assertions     tableFile `yaml:"assertions"`
	Mocks          struct {
		Base     string     `yaml:"base"`
		Fallback string     `yaml:"fallback"`
		Rules    []ruleFile `yaml:"rules"`
	} `yaml:"mocks"`
	NeedsE2E       []string `yaml:"needs_e2e"`
	ComponentPaths struct {
		Roots     []string `yaml:"roots"`
		MaxLength int      `yaml:"max_length"`
	} `yaml:"component_paths"`
	Realness struct {
		Admin            []string `yaml:"admin"`
		NonBug           []string `yaml:"non_bug"`
		Duplicate        []string `yaml:"duplicate"`
		ExternalTracking []string `yaml:"external_tracking"`
		BugSignalLabels  []string `yaml:"bug_signal_labels"`
	} `yaml:"realness"`
	Resolution struct {
		APIKeywords    []string `yaml:"api_keywords"`
		MobileKeywords []string `yaml:"mobile_keywords"`
	} `yaml:"resolution"`
	BotAuthorSuffixes []string `yaml:"bot_author_suffixes"`
	BotAuthorLogins   []string `yaml:"bot_author_logins"`
}

var loadDefault = sync.OnceValues(func() (*Set, error) {
	return Parse(defaultRulesYAML)
})

// Default returns the embedded rule set. The set is parsed once and must be
// treated as read-only.
func Default() *Set {
	set, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("load embedded rules.yaml: %v", err))
	}

	return set
}

// LoadFile parses a rule set from a YAML file on disk.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}

	return Parse(data)
}

// Parse compiles a rule set from YAML.
func Parse(data []byte) (*Set, error) {
	var raw setFile

	unmarshalErr := yaml.Unmarshal(data, &raw)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("decode rules: %w", unmarshalErr)
	}

	if strings.Count(raw.Mocks.Base, "%s") != 1 {
		return nil, ErrMissingMockBase
	}

	c := compiler{}

	set := &Set{
		ComponentHints:    c.table("component_hints", raw.ComponentHints),
		Assertions:        c.table("assertions", raw.Assertions),
		Mocks:             c.table("mocks", tableFile{Fallback: raw.Mocks.Fallback, Rules: raw.Mocks.Rules}),
		MockBase:          raw.Mocks.Base,
		NeedsE2E:          c.patterns("needs_e2e", raw.NeedsE2E),
		PathRoots:         raw.ComponentPaths.Roots,
		MaxPathLength:     raw.ComponentPaths.MaxLength,
		Admin:             c.patterns("realness.admin", raw.Realness.Admin),
		NonBug:            c.patterns("realness.non_bug", raw.Realness.NonBug),
		Duplicate:         c.patterns("realness.duplicate", raw.Realness.Duplicate),
		ExternalTracking:  c.patterns("realness.external_tracking", raw.Realness.ExternalTracking),
		BugSignalLabels:   raw.Realness.BugSignalLabels,
		APIKeywords:       c.patterns("resolution.api_keywords", raw.Resolution.APIKeywords),
		MobileKeywords:    c.patterns("resolution.mobile_keywords", raw.Resolution.MobileKeywords),
		BotAuthorSuffixes: raw.BotAuthorSuffixes,
		BotAuthorLogins:   raw.BotAuthorLogins,
	}

	if c.err != nil {
		return nil, c.err
	}

	return set, nil
}

// compiler keeps the first compilation error so tables can be built in one pass.
type compiler struct {
	err error
}

func (c *compiler) compile(scope, pattern string) *regexp.Regexp {
	re, err := regexp.Compile(pattern)
	if err != nil && c.err == nil {
		c.err = fmt.Errorf("%w: %s: %w", ErrInvalidPattern, scope, err)
	}

	return re
}

func (c *compiler) table(scope string, raw tableFile) Table {
	if raw.Fallback == "" && c.err == nil {
		c.err = fmt.Errorf("%w: %s", ErrMissingFallback, scope)
	}

	table := Table{Fallback: raw.Fallback, Rules: make([]Rule, 0, len(raw.Rules))}
	for _, r := range raw.Rules {
		table.Rules = append(table.Rules, Rule{Pattern: c.compile(scope, r.Pattern), Value: r.Value})
	}

	return table
}

func (c *compiler) patterns(scope string, raw []string) Patterns {
	out := make(Patterns, 0, len(raw))
	for _, p := range raw {
		out = append(out, c.compile(scope, p))
	}

	return out
}
