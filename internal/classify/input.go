// Package classify assigns heuristic verdicts to issues: whether an issue is
// a real defect, which layer fixed it, how confident the verdict is, and
// which regression test should guard it.
//
// Each stage is an ordered list of rules evaluated first-match-wins. The
// verdicts are best-effort keyword heuristics, not semantic judgements.
package classify

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/bugmatrix/internal/cluster"
	"github.com/Sumatoshi-tech/bugmatrix/internal/rules"
	"github.com/Sumatoshi-tech/bugmatrix/pkg/issue"
)

// maxListedIDs caps how many issue or pull request numbers appear in evidence.
const maxListedIDs = 3

// Classifier evaluates the rule lists against one rule set.
type Classifier struct {
	rules *rules.Set
}

// New creates a Classifier for the rule set.
func New(set *rules.Set) *Classifier {
	return &Classifier{rules: set}
}

// Input is what every stage sees of one issue.
type Input struct {
	Issue issue.Issue
	// Text is the title, body and human comments joined by newlines.
	Text string
	// Cluster is the issue's title cluster, nil when unclustered.
	Cluster *cluster.Cluster
}

// NewInput assembles the classifier input, dropping comments written by
// automation accounts.
func (c *Classifier) NewInput(iss issue.Issue, cl *cluster.Cluster) Input {
	parts := []string{iss.Title, iss.Body}

	for _, comment := range iss.Comments {
		if c.IsBot(comment.Author) {
			continue
		}

		parts = append(parts, comment.Body)
	}

	return Input{Issue: iss, Text: strings.Join(parts, "\n"), Cluster: cl}
}

// IsBot reports whether a login belongs to an automation account.
func (c *Classifier) IsBot(login string) bool {
	lowered := strings.ToLower(strings.TrimSpace(login))
	if lowered == "" {
		return false
	}

	if slices.Contains(c.rules.BotAuthorLogins, lowered) {
		return true
	}

	for _, suffix := range c.rules.BotAuthorSuffixes {
		if strings.HasSuffix(lowered, suffix) {
			return true
		}
	}

	return false
}

func (in Input) completedSiblings() []int {
	if in.Cluster == nil {
		return nil
	}

	return in.Cluster.CompletedSiblings(in.Issue.Number)
}

func (in Input) changeSiblings() []int {
	if in.Cluster == nil {
		return nil
	}

	return in.Cluster.ChangeSiblings(in.Issue.Number)
}

// SiblingCount returns how many other issues share the title cluster.
func (in Input) SiblingCount() int {
	if in.Cluster == nil {
		return 0
	}

	return len(in.Cluster.Siblings(in.Issue.Number))
}

// refList formats up to three numbers as "#1, #2, #3".
func refList(ids []int) string {
	shown := ids[:min(len(ids), maxListedIDs)]
	refs := make([]string, 0, len(shown))

	for _, id := range shown {
		refs = append(refs, fmt.Sprintf("#%d", id))
	}

	return strings.Join(refs, ", ")
}
