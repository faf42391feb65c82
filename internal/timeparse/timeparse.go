// Package timeparse extracts absolute timestamps from free-text time phrases
// such as "tomorrow 8am", "12:2:2026 7pm" or "in 3 hours".
//
// Two entry points share one rule engine. Parse only looks at text that opts in
// with a "reminder at" (or the common misspelling "remainder at") keyword and
// reports Found=false when nothing recognizable follows it. Resolve runs the
// same rules over the whole text and falls back to one hour from now.
package timeparse

import (
	"regexp"
	"strings"
	"time"
)

// DefaultHour is the time of day used when a phrase names a day but no time.
const DefaultHour = 9

// FallbackDelay is how far ahead Resolve schedules text it cannot understand.
const FallbackDelay = time.Hour

// Result is the outcome of scanning text for a time expression.
// At and Remainder are only meaningful when Found is true.
type Result struct {
	Found bool
	At    time.Time
	// Remainder is the original text with the keyword and time phrase removed.
	Remainder string
	// Defaulted is set by Resolve when no rule matched and At is now+FallbackDelay.
	Defaulted bool
}

// Timestamp returns At in epoch milliseconds, or 0 when nothing was found.
func (r Result) Timestamp() int64 {
	if !r.Found {
		return 0
	}
	return r.At.UnixMilli()
}

var keywordRegex = regexp.MustCompile(`(?i)\b(?:reminder|remainder)\s+at\b`)

// Parse looks for "reminder at <phrase>" in text. Without the keyword, or when
// the phrase matches no rule, the result is not found and no time is computed.
// Only the keyword and the matched phrase are stripped; surrounding words,
// including anything after the phrase, stay in Remainder.
func Parse(text string, now time.Time) Result {
	loc := keywordRegex.FindStringIndex(text)
	if loc == nil {
		return Result{}
	}

	before := text[:loc[0]]
	phrase := text[loc[1]:]

	m, ok := match(phrase, now, true)
	if !ok {
		return Result{}
	}

	return Result{
		Found:     true,
		At:        m.at,
		Remainder: collapse(before, phrase[:m.start], phrase[m.end:]),
	}
}

// Resolve runs the rules over the whole text without requiring a keyword.
// It always produces a time; text with no recognizable phrase resolves to
// now+FallbackDelay with Defaulted set.
func Resolve(text string, now time.Time) Result {
	m, _ := match(text, now, false)
	if m.defaulted {
		return Result{
			Found:     true,
			At:        m.at,
			Remainder: collapse(text),
			Defaulted: true,
		}
	}

	return Result{
		Found:     true,
		At:        m.at,
		Remainder: collapse(text[:m.start], text[m.end:]),
	}
}

// HasKeyword reports whether text opts into time extraction.
func HasKeyword(text string) bool {
	return keywordRegex.MatchString(text)
}

// collapse joins the parts and squeezes runs of whitespace into single spaces.
func collapse(parts ...string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
