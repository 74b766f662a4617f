// Package sections splits issue bodies written from tracker templates into
// named sections keyed by their normalized heading.
package sections

import (
	"regexp"
	"strings"

	"github.com/Sumatoshi-tech/bugmatrix/pkg/textutil"
)

// PreambleKey holds the text that appears before the first heading.
const PreambleKey = "__preamble__"

var (
	hashHeadingPattern = regexp.MustCompile(`^\s*#{1,6}\s+(.+?)\s*$`)
	boldHeadingPattern = regexp.MustCompile(`^\s*\*\*(.+?)\*\*\s*$`)
)

// Map is an ordered mapping from normalized heading to section text.
// Keys keep the order in which their headings first appear.
type Map struct {
	order []string
	text  map[string]string
}

// Parse splits body into sections. A line is a heading when it is a
// 1-6 hash markdown heading or when its whole trimmed content is bold.
// Other lines are kept with trailing whitespace removed.
func Parse(body string) *Map {
	lines := map[string][]string{PreambleKey: nil}
	order := []string{PreambleKey}
	current := PreambleKey

	for rawLine := range strings.SplitSeq(body, "\n") {
		line := strings.TrimRight(rawLine, " \t\r")
		stripped := strings.TrimSpace(line)

		heading, isHeading := headingText(stripped)
		if isHeading {
			current = textutil.NormalizeHeading(heading)
			if _, seen := lines[current]; !seen {
				lines[current] = nil
				order = append(order, current)
			}

			continue
		}

		lines[current] = append(lines[current], line)
	}

	sm := &Map{order: order, text: make(map[string]string, len(order))}
	for _, key := range order {
		sm.text[key] = strings.TrimSpace(strings.Join(lines[key], "\n"))
	}

	return sm
}

func headingText(stripped string) (string, bool) {
	if match := hashHeadingPattern.FindStringSubmatch(stripped); match != nil {
		return match[1], true
	}

	if match := boldHeadingPattern.FindStringSubmatch(stripped); match != nil {
		return match[1], true
	}

	return "", false
}

// Keys returns section keys in document order, starting with [PreambleKey].
func (m *Map) Keys() []string {
	keys := make([]string, len(m.order))
	copy(keys, m.order)

	return keys
}

// Get returns the text stored under key.
func (m *Map) Get(key string) (string, bool) {
	value, ok := m.text[key]

	return value, ok
}

// Lookup returns the first non-empty section, in document order, whose key
// matches one of the aliases after heading normalization. It returns an
// empty string when nothing matches.
func (m *Map) Lookup(aliases ...string) string {
	wanted := make(map[string]struct{}, len(aliases))
	for _, alias := range aliases {
		wanted[textutil.NormalizeHeading(alias)] = struct{}{}
	}

	for _, key := range m.Keys() {
		value, _ := m.Get(key)
		if value == "" {
			continue
		}

		if _, ok := wanted[textutil.NormalizeHeading(key)]; ok {
			return value
		}
	}

	return ""
}
