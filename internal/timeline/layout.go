package timeline

import "time"

// Item is one labeled interval to place on the timeline.
type Item struct {
	Label string
	Time  string
	Kind  string
}

// Segment is a parsed Item positioned on the axis. Left and Width are
// percentages of the full day.
type Segment struct {
	Label           string  `json:"label"`
	Kind            string  `json:"kind"`
	Raw             string  `json:"raw"`
	Range           Range   `json:"range"`
	Left            float64 `json:"left"`
	Width           float64 `json:"width"`
	CrossesMidnight bool    `json:"crosses_midnight"`
}

// Omission records an item that could not be placed.
type Omission struct {
	Label string `json:"label"`
	Raw   string `json:"raw"`
}

// Timeline is the laid-out result of Build.
type Timeline struct {
	Segments []Segment  `json:"segments"`
	Omitted  []Omission `json:"omitted,omitempty"`
}

// NewSegment positions a parsed range. A range that crosses midnight keeps
// its raw values and gets a zero width instead of a wrapped interval.
func NewSegment(label, kind, raw string, r Range) Segment {
	left := Position(r.Start)
	width := Position(r.End) - left
	if width < 0 {
		width = 0
	}
	return Segment{
		Label:           label,
		Kind:            kind,
		Raw:             raw,
		Range:           r,
		Left:            left,
		Width:           width,
		CrossesMidnight: r.CrossesMidnight(),
	}
}

// Build parses every item and keeps input order. Items whose time text
// cannot be parsed are listed in Omitted; they never stop the others.
func Build(items []Item) Timeline {
	tl := Timeline{Segments: make([]Segment, 0, len(items))}
	for _, it := range items {
		r, ok := ParseRange(it.Time)
		if !ok {
			tl.Omitted = append(tl.Omitted, Omission{Label: it.Label, Raw: it.Time})
			continue
		}
		tl.Segments = append(tl.Segments, NewSegment(it.Label, it.Kind, it.Time, r))
	}
	return tl
}

// NowMarker returns the axis position of t at minute granularity.
func NowMarker(t time.Time) float64 {
	return Position(t.Hour()*60 + t.Minute())
}
