// Package timeline turns the free-text time ranges returned by the almanac
// generator into minute-of-day intervals and lays them out on a 24-hour axis.
//
// Everything in this package is pure: no I/O, no shared state, safe to call
// from any number of goroutines.
package timeline

import (
	"regexp"
	"strconv"
	"strings"
)

// MinutesPerDay is the length of the timeline axis.
const MinutesPerDay = 24 * 60

var (
	// clockPattern finds "H:MM" or "H.MM" with an optional AM/PM marker.
	// The leading group keeps "123:45" from being read as "23:45"; the
	// captured trailing characters let ParseMinutes reject "6:305" and
	// "6:30 PM5" the same way.
	clockPattern = regexp.MustCompile(`(?i)(?:^|[^0-9])([0-9]{1,2})[:.]([0-9]{2})([0-9])?(?:\s*(AM|PM)([0-9A-Za-z])?)?`)

	// rangeSeparator matches a dash, en-dash, em-dash or the word "to".
	rangeSeparator = regexp.MustCompile(`(?i)\s*(?:-|–|—|\bto\b)\s*`)
)

// Range is a half-open interval [Start, End) in minutes since midnight.
//
// End may be smaller than Start when the source text crosses midnight;
// ParseRange does not reorder or wrap the values.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// CrossesMidnight reports whether the range ends before it starts.
func (r Range) CrossesMidnight() bool {
	return r.End < r.Start
}

// ParseMinutes converts a clock token such as "6:05 AM", "18.30" or
// "11:45PM" into minutes since midnight. ok is false when the token holds
// no hour/minute pair at all.
//
// A token without a meridiem marker is taken literally: "6:30" is 06:30,
// never 18:30. Minutes are not range-checked, so "25:99" yields 159.
func ParseMinutes(s string) (minutes int, ok bool) {
	m := clockMatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}

	meridiem := strings.ToUpper(m[4])
	if m[5] != "" {
		// "6:30 Amrit" carries no marker.
		meridiem = ""
	}
	switch meridiem {
	case "PM":
		if hour < 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}

	return (hour%24)*60 + minute, true
}

// clockMatch returns the first clock token in s that is not glued to
// further digits on either side.
func clockMatch(s string) []string {
	for _, m := range clockPattern.FindAllStringSubmatch(s, -1) {
		if m[3] != "" || isDigit(m[5]) {
			continue
		}
		return m
	}
	return nil
}

func isDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// ParseRange splits s on the first dash, en-dash, em-dash or "to" and
// normalizes both halves with ParseMinutes. ok is false if either half
// is missing or unparseable.
func ParseRange(s string) (r Range, ok bool) {
	parts := rangeSeparator.Split(strings.TrimSpace(s), 2)
	if len(parts) < 2 {
		return Range{}, false
	}

	start, ok := ParseMinutes(parts[0])
	if !ok {
		return Range{}, false
	}
	end, ok := ParseMinutes(parts[1])
	if !ok {
		return Range{}, false
	}

	return Range{Start: start, End: end}, true
}

// Position maps a minute value to a percentage along the 24-hour axis.
// Values outside [0, MinutesPerDay] saturate at the edges.
func Position(minute int) float64 {
	if minute < 0 {
		minute = 0
	}
	if minute > MinutesPerDay {
		minute = MinutesPerDay
	}
	return float64(minute) / MinutesPerDay * 100
}
