package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// clock matches a time of day: H, H:MM, optionally followed by am/pm.
const clock = `(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`

// rule is one entry of the ordered rule list. resolve receives the submatches
// of re (index 0 is the whole match) and reports false when the numbers in the
// phrase cannot be used.
type rule struct {
	name    string
	re      *regexp.Regexp
	resolve func(g []string, now time.Time) (time.Time, bool)
}

type matchResult struct {
	at         time.Time
	start, end int
	rule       string
	defaulted  bool
}

// rules are tried top to bottom and the first hit wins. Full dates come first
// so that "12:2:2026" is not read as the clock time 12:02.
var rules = []rule{
	{
		name: "date_colon",
		re:   regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{1,2}):(\d{4})(?:\s+(?:at\s+)?` + clock + `)?\b`),
		resolve: func(g []string, now time.Time) (time.Time, bool) {
			return fullDate(g[3], g[1], g[2], g[4:], now)
		},
	},
	{
		name: "date_slash",
		re:   regexp.MustCompile(`(?i)\b(\d{1,2})/(\d{1,2})/(\d{4})(?:\s+(?:at\s+)?` + clock + `)?\b`),
		resolve: func(g []string, now time.Time) (time.Time, bool) {
			return fullDate(g[3], g[1], g[2], g[4:], now)
		},
	},
	{
		name: "date_iso",
		re:   regexp.MustCompile(`(?i)\b(\d{4})-(\d{1,2})-(\d{1,2})(?:\s+(?:at\s+)?` + clock + `)?\b`),
		resolve: func(g []string, now time.Time) (time.Time, bool) {
			return fullDate(g[1], g[2], g[3], g[4:], now)
		},
	},
	{
		name: "today_time",
		re:   regexp.MustCompile(`(?i)\btoday\s+(?:at\s+)?` + clock + `\b`),
		resolve: func(g []string, now time.Time) (time.Time, bool) {
			return onDay(now, 0, g[1:])
		},
	},
	{
		name: "tomorrow_time",
		re:   regexp.MustCompile(`(?i)\btomorrow\s+(?:at\s+)?` + clock + `\b`),
		resolve: func(g []string, now time.Time) (time.Time, bool) {
			return onDay(now, 1, g[1:])
		},
	},
	{
		name: "tomorrow",
		re:   regexp.MustCompile(`(?i)\btomorrow\b`),
		resolve: func(_ []string, now time.Time) (time.Time, bool) {
			return atClock(now.AddDate(0, 0, 1), DefaultHour, 0), true
		},
	},
	{
		name: "next_week",
		re:   regexp.MustCompile(`(?i)\bnext\s+week\b`),
		resolve: func(_ []string, now time.Time) (time.Time, bool) {
			return atClock(now.AddDate(0, 0, 7), DefaultHour, 0), true
		},
	},
	{
		name: "in_hours",
		re:   regexp.MustCompile(`(?i)\bin\s+(\d+)\s*(?:hours?|hrs?|h)\b`),
		resolve: func(g []string, now time.Time) (time.Time, bool) {
			return relative(now, g[1], time.Hour)
		},
	},
	{
		name: "in_minutes",
		re:   regexp.MustCompile(`(?i)\bin\s+(\d+)\s*(?:minutes?|mins?|m)\b`),
		resolve: func(g []string, now time.Time) (time.Time, bool) {
			return relative(now, g[1], time.Minute)
		},
	},
	{
		name: "clock_minutes_meridiem",
		re:   regexp.MustCompile(`(?i)\b(?:at\s+)?(\d{1,2}):(\d{2})\s*(am|pm)\b`),
		resolve: func(g []string, now time.Time) (time.Time, bool) {
			return bareTime(now, g[1], g[2], g[3])
		},
	},
	{
		name: "clock_meridiem",
		re:   regexp.MustCompile(`(?i)\b(?:at\s+)?(\d{1,2})\s*(am|pm)\b`),
		resolve: func(g []string, now time.Time) (time.Time, bool) {
			return bareTime(now, g[1], "", g[2])
		},
	},
	{
		name: "clock_minutes",
		re:   regexp.MustCompile(`(?i)\b(?:at\s+)?(\d{1,2}):(\d{2})\b`),
		resolve: func(g []string, now time.Time) (time.Time, bool) {
			return bareTime(now, g[1], g[2], "")
		},
	},
	{
		name: "clock_hour",
		re:   regexp.MustCompile(`(?i)\b(?:at\s+)?(\d{1,2})\b`),
		resolve: func(g []string, now time.Time) (time.Time, bool) {
			return bareTime(now, g[1], "", "")
		},
	},
}

// match runs the rule list over phrase. In strict mode an unmatched phrase
// reports false; otherwise it resolves to now+FallbackDelay.
func match(phrase string, now time.Time, strict bool) (matchResult, bool) {
	for _, r := range rules {
		idx := r.re.FindStringSubmatchIndex(phrase)
		if idx == nil {
			continue
		}

		at, ok := r.resolve(submatches(phrase, idx), now)
		if !ok {
			continue
		}

		return matchResult{at: at, start: idx[0], end: idx[1], rule: r.name}, true
	}

	if strict {
		return matchResult{}, false
	}

	return matchResult{at: now.Add(FallbackDelay), defaulted: true}, true
}

func submatches(s string, idx []int) []string {
	out := make([]string, len(idx)/2)
	for i := range out {
		if idx[2*i] >= 0 {
			out[i] = s[idx[2*i]:idx[2*i+1]]
		}
	}
	return out
}

// fullDate builds a calendar date with an optional clock given as
// [hour, minute, meridiem] submatches. Without a clock it uses DefaultHour.
func fullDate(year, month, day string, clockGroups []string, now time.Time) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	mo, err := strconv.Atoi(month)
	if err != nil {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, false
	}

	hour, minute := DefaultHour, 0
	if clockGroups[0] != "" {
		h, m, ok := parseClock(clockGroups[0], clockGroups[1])
		if !ok {
			return time.Time{}, false
		}
		hour, minute = to24(h, clockGroups[2]), m
	}

	return time.Date(y, time.Month(mo), d, hour, minute, 0, 0, now.Location()), true
}

// onDay places a clock time on the day offset days after now. The hour is
// taken literally when there is no am/pm marker.
func onDay(now time.Time, offset int, clockGroups []string) (time.Time, bool) {
	h, m, ok := parseClock(clockGroups[0], clockGroups[1])
	if !ok {
		return time.Time{}, false
	}
	return atClock(now.AddDate(0, 0, offset), to24(h, clockGroups[2]), m), true
}

func relative(now time.Time, n string, unit time.Duration) (time.Time, bool) {
	count, err := strconv.ParseInt(n, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return now.Add(time.Duration(count) * unit), true
}

// bareTime resolves a time of day with no date. Without am/pm an hour up to
// 12 is read as afternoon once now is past noon. A result that is not strictly
// after now moves to the next day.
func bareTime(now time.Time, hour, minute, meridiem string) (time.Time, bool) {
	h, m, ok := parseClock(hour, minute)
	if !ok {
		return time.Time{}, false
	}

	if meridiem == "" {
		if h <= 12 && now.Hour() >= 12 {
			h += 12
		}
	} else {
		h = to24(h, meridiem)
	}

	at := atClock(now, h, m)
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, true
}

func parseClock(hour, minute string) (int, int, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return 0, 0, false
	}
	if minute == "" {
		return h, 0, true
	}
	m, err := strconv.Atoi(minute)
	if err != nil {
		return 0, 0, false
	}
	return h, m, true
}

// to24 converts a 12-hour clock reading. Hours without a marker, or outside
// 1..12, pass through unchanged.
func to24(hour int, meridiem string) int {
	switch strings.ToLower(meridiem) {
	case "am":
		if hour == 12 {
			return 0
		}
	case "pm":
		if hour >= 1 && hour <= 11 {
			return hour + 12
		}
	}
	return hour
}

// atClock returns the given wall-clock time on day's date. Out-of-range
// values roll over the way time.Date normalizes them.
func atClock(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
