// Package cluster groups issues whose titles normalize to the same key so
// that likely duplicates can share resolution status.
package cluster

import (
	"regexp"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/bugmatrix/pkg/issue"
	"github.com/Sumatoshi-tech/bugmatrix/pkg/textutil"
)

var (
	platformQualifierPattern = regexp.MustCompile(
		`\([^)]*\b(?:ios|android|mobile|both platforms|all platforms)\b[^)]*\)`)
	versionPattern     = regexp.MustCompile(`\bv?\d+(?:\.\d+){1,3}(?:[-+][0-9a-z.]+)?\b`)
	nonAlphanumPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// TitleKey normalizes a title for clustering: tracker prefixes, platform
// qualifiers and version numbers are removed, the rest is lowercased and
// reduced to single-space separated alphanumeric words.
func TitleKey(title string) string {
	key := strings.ToLower(textutil.CleanTitle(title))
	key = platformQualifierPattern.ReplaceAllString(key, " ")
	key = versionPattern.ReplaceAllString(key, " ")
	key = nonAlphanumPattern.ReplaceAllString(key, " ")

	return strings.TrimSpace(key)
}

// Cluster lists the issues sharing one title key, in batch order.
type Cluster struct {
	Key     string
	Members []int
	// Completed holds members closed as completed.
	Completed []int
	// CompletedWithChange holds completed members that also reference a
	// closing pull request.
	CompletedWithChange []int
}

// Siblings returns members other than self.
func (c *Cluster) Siblings(self int) []int {
	return without(c.Members, self)
}

// CompletedSiblings returns completed members other than self.
func (c *Cluster) CompletedSiblings(self int) []int {
	return without(c.Completed, self)
}

// ChangeSiblings returns completed-with-change members other than self.
func (c *Cluster) ChangeSiblings(self int) []int {
	return without(c.CompletedWithChange, self)
}

func without(ids []int, self int) []int {
	out := make([]int, 0, len(ids))

	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}

	return out
}

// Index maps title keys to clusters. It is built once per batch and is
// read-only afterwards, so it is safe for concurrent readers.
type Index struct {
	byKey map[string]*Cluster
	keys  []string
}

// Build clusters the issues in a single pass. Issues whose title key is
// empty are not clustered.
func Build(issues []issue.Issue) *Index {
	idx := &Index{byKey: make(map[string]*Cluster)}

	for _, iss := range issues {
		key := TitleKey(iss.Title)
		if key == "" {
			continue
		}

		c, ok := idx.byKey[key]
		if !ok {
			c = &Cluster{Key: key}
			idx.byKey[key] = c
			idx.keys = append(idx.keys, key)
		}

		c.Members = append(c.Members, iss.Number)

		if iss.Completed() {
			c.Completed = append(c.Completed, iss.Number)

			if len(iss.ClosingPRs) > 0 {
				c.CompletedWithChange = append(c.CompletedWithChange, iss.Number)
			}
		}
	}

	return idx
}

// For returns the issue's cluster, or nil when its title key is empty.
func (idx *Index) For(title string) *Cluster {
	c, _ := idx.Get(TitleKey(title))

	return c
}

// Get returns the cluster stored under key.
func (idx *Index) Get(key string) (*Cluster, bool) {
	c, ok := idx.byKey[key]

	return c, ok
}

// Keys returns cluster keys in first-seen order.
func (idx *Index) Keys() []string {
	return slices.Clone(idx.keys)
}

// Len returns the number of clusters.
func (idx *Index) Len() int {
	return len(idx.keys)
}

// Canonical picks the cluster member that should own the regression test:
// the smallest completed-with-change member, else the smallest completed
// member, else the smallest member. A nil or empty cluster yields self.
func Canonical(c *Cluster, self int) int {
	if c == nil {
		return self
	}

	for _, ids := range [][]int{c.CompletedWithChange, c.Completed, c.Members} {
		if len(ids) > 0 {
			return slices.Min(ids)
		}
	}

	return self
}
