package panchang

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/zapponejosh/panchang-api/internal/calendar"
)

// DefaultSourceTitle replaces a missing citation title.
const DefaultSourceTitle = "Vedic Authority Source"

var codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// stripFences removes a surrounding markdown code block, if any.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if m := codeFence.FindStringSubmatch(content); len(m) > 1 {
		return m[1]
	}
	return content
}

// DecodeDay parses a generator answer for q and normalizes it.
func DecodeDay(raw string, q Query) (*PanchangData, error) {
	content := stripFences(raw)
	if content == "" {
		return nil, errors.New("empty response")
	}

	var data PanchangData
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return nil, fmt.Errorf("decode day response: %w", err)
	}
	normalizeDay(&data, q)
	return &data, nil
}

func normalizeDay(d *PanchangData, q Query) {
	if strings.TrimSpace(d.Date) == "" {
		d.Date = calendar.FormatDate(q.Date)
	}
	if strings.TrimSpace(d.Location) == "" {
		d.Location = strings.TrimSpace(q.Location)
	}

	d.InauspiciousTimings = forceStatus(d.InauspiciousTimings, StatusInauspicious)
	d.AuspiciousTimings = forceStatus(d.AuspiciousTimings, StatusAuspicious)

	sources := make([]Source, 0, len(d.Sources))
	for _, s := range d.Sources {
		s.URI = strings.TrimSpace(s.URI)
		if s.URI == "" {
			continue
		}
		if strings.TrimSpace(s.Title) == "" {
			s.Title = DefaultSourceTitle
		}
		sources = append(sources, s)
	}
	d.Sources = sources
}

func forceStatus(list []TimingInfo, status Status) []TimingInfo {
	out := make([]TimingInfo, len(list))
	for i, t := range list {
		t.Status = status
		if t.NameLocal == "" {
			t.NameLocal = t.NameEn
		}
		out[i] = t
	}
	return out
}

// DecodeMonth parses month highlights for mq. It accepts either the
// {"days":[{date,highlight}]} shape requested by MonthSchema or a flat
// {"YYYY-MM-DD": highlight} object.
func DecodeMonth(raw string, mq MonthQuery) (MonthHighlights, error) {
	content := stripFences(raw)
	if content == "" {
		return nil, errors.New("empty response")
	}

	var listed struct {
		Days []struct {
			Date      string `json:"date"`
			Highlight string `json:"highlight"`
		} `json:"days"`
	}
	entries := map[string]string{}
	if err := json.Unmarshal([]byte(content), &listed); err == nil && listed.Days != nil {
		for _, d := range listed.Days {
			entries[d.Date] = d.Highlight
		}
	} else if err := json.Unmarshal([]byte(content), &entries); err != nil {
		return nil, fmt.Errorf("decode month response: %w", err)
	}

	out := make(MonthHighlights, len(entries))
	for key, value := range entries {
		d, err := calendar.ParseDateString(strings.TrimSpace(key))
		if err != nil || d.Year() != mq.Year || d.Month() != mq.Month {
			continue
		}
		out[calendar.FormatDate(d)] = parseHighlight(value)
	}
	return out, nil
}

func parseHighlight(s string) DayHighlight {
	switch DayHighlight(strings.ToLower(strings.TrimSpace(s))) {
	case HighlightAuspicious:
		return HighlightAuspicious
	case HighlightInauspicious:
		return HighlightInauspicious
	default:
		return HighlightNeutral
	}
}

// Highlight returns the classification for date, neutral when unknown.
func (m MonthHighlights) Highlight(date time.Time) DayHighlight {
	if h, ok := m[calendar.FormatDate(date)]; ok {
		return h
	}
	return HighlightNeutral
}
