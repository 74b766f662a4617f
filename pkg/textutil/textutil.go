// Package textutil provides markdown-to-plain-text normalization helpers used
// to turn free-form issue text into compact table cells.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ellipsis is appended to truncated strings.
const Ellipsis = "…"

var (
	codeFencePattern   = regexp.MustCompile("(?s)```.*?```")
	strayFencePattern  = regexp.MustCompile("```+")
	imagePattern       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	linkPattern        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	imgTagPattern      = regexp.MustCompile(`(?i)<img[^>]*>`)
	htmlTagPattern     = regexp.MustCompile(`</?[^>]+>`)
	inlineCodePattern  = regexp.MustCompile("`([^`]+)`")
	whitespacePattern  = regexp.MustCompile(`[\s\p{Z}\v\x{85}]+`)
	headingPunctuation = regexp.MustCompile("[_*`:#-]+")
	tagPrefixPattern   = regexp.MustCompile(`^\[[^\]]+\]\s*:?\s*`)
	kindPrefixPattern  = regexp.MustCompile(`(?i)^(bug|ui)\s*:\s*`)
)

var emphasisReplacer = strings.NewReplacer("**", "", "__", "")

// Normalize strips markdown formatting from text and collapses whitespace,
// including Unicode spaces such as NBSP, to single ASCII spaces.
// Code fences, images, HTML tags and inline code markers are removed, links
// are replaced by their text. The result is a fixed point: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	value := text

	for {
		next := normalizeOnce(value)
		if next == value {
			return next
		}

		value = next
	}
}

func normalizeOnce(text string) string {
	if text == "" {
		return ""
	}

	value := codeFencePattern.ReplaceAllString(text, " ")
	value = strayFencePattern.ReplaceAllString(value, " ")
	value = imagePattern.ReplaceAllString(value, " ")
	value = linkPattern.ReplaceAllString(value, "$1")
	value = imgTagPattern.ReplaceAllString(value, " ")
	value = htmlTagPattern.ReplaceAllString(value, " ")
	value = inlineCodePattern.ReplaceAllString(value, "$1")
	value = emphasisReplacer.Replace(value)
	value = strings.ReplaceAll(value, "*", "")
	value = strings.ReplaceAll(value, "_", " ")
	value = whitespacePattern.ReplaceAllString(value, " ")

	return strings.TrimSpace(value)
}

// Shorten normalizes text and truncates it to at most maxRunes runes.
// Truncated output ends with [Ellipsis]; the ellipsis counts toward the limit.
func Shorten(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}

	clean := Normalize(text)
	if utf8.RuneCountInString(clean) <= maxRunes {
		return clean
	}

	runes := []rune(clean)
	head := strings.TrimRightFunc(string(runes[:maxRunes-1]), unicode.IsSpace)

	return head + Ellipsis
}

// CleanTitle removes tracker prefixes such as "[Bug]:" or "UI:" from an issue title.
func CleanTitle(title string) string {
	value := strings.TrimSpace(title)
	value = tagPrefixPattern.ReplaceAllString(value, "")
	value = kindPrefixPattern.ReplaceAllString(value, "")

	return value
}

// NormalizeHeading lowercases a heading and replaces markdown punctuation
// runs with single spaces.
func NormalizeHeading(value string) string {
	text := strings.ToLower(strings.TrimSpace(value))
	text = headingPunctuation.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// FirstNonEmpty returns the first value that is not blank, trimmed.
func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}

	return ""
}
