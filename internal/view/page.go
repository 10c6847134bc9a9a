// Package view builds the almanac page model and renders it to HTML.
//
// Theme and language arrive as explicit options on every build; nothing
// here keeps per-user state.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/zapponejosh/panchang-api/internal/calendar"
	"github.com/zapponejosh/panchang-api/internal/i18n"
	"github.com/zapponejosh/panchang-api/internal/panchang"
	"github.com/zapponejosh/panchang-api/internal/theme"
	"github.com/zapponejosh/panchang-api/internal/timeline"
)

// markdown renders generator commentary. Raw HTML in the source is
// escaped because the renderer is not configured as unsafe.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderMarkdown converts commentary text to sanitized HTML.
func RenderMarkdown(src string) template.HTML {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// Options are the presentation choices for one request.
type Options struct {
	Theme     theme.Theme
	Language  panchang.Language
	WeekStart time.Weekday
}

// Input is everything Build needs for one page.
type Input struct {
	Query      panchang.Query
	Data       *panchang.PanchangData
	Highlights panchang.MonthHighlights
	Now        time.Time // current time in the display zone
	Err        error
	Options    Options
}

// Marker is a labeled point on the timeline axis.
type Marker struct {
	Label    string
	Time     string
	Position float64
}

// Tick is an hour mark under the timeline.
type Tick struct {
	Label    string
	Position float64
}

// DayCell is one square of the month view.
type DayCell struct {
	Day       int
	Date      string
	InMonth   bool
	Selected  bool
	Today     bool
	Highlight panchang.DayHighlight
}

// MonthView is the calendar grid around the selected date.
type MonthView struct {
	Label    string
	Headers  []string
	Weeks    [][]DayCell
	PrevDate string
	NextDate string
}

// Page is the template model.
type Page struct {
	Theme     theme.Record
	Themes    []theme.Record
	NextTheme theme.Theme
	Language  panchang.Language
	Languages []panchang.Language
	Region    panchang.Region
	Regions   []panchang.Region

	Date     string
	Location string
	Lat      string
	Lng      string

	Data      *panchang.PanchangData
	Summary   template.HTML
	Horoscope template.HTML
	Timeline  timeline.Timeline
	Markers   []Marker
	Ticks     []Tick
	NowMarker float64
	ShowNow   bool
	Month     MonthView
	Error     string

	labels i18n.Labels
}

// T returns the label for key in the page language.
func (p Page) T(key string) string {
	if s, ok := p.labels[key]; ok {
		return s
	}
	return key
}

// Build assembles the page model. It never fails: a missing almanac or an
// unparseable interval only removes that part of the page.
func Build(in Input) Page {
	opts := in.Options
	if !opts.Language.IsValid() {
		opts.Language = in.Query.Language
	}
	if !opts.Language.IsValid() {
		opts.Language = panchang.LanguageTelugu
	}

	p := Page{
		Theme:     theme.Get(opts.Theme),
		Themes:    theme.Records(),
		Language:  opts.Language,
		Languages: panchang.Languages(),
		Region:    in.Query.Region,
		Regions:   panchang.Regions(),
		Location:  in.Query.Location,
		Ticks:     hourTicks(),
		labels:    i18n.All(opts.Language),
	}
	p.NextTheme = theme.Next(p.Theme.ID)

	if !in.Query.Date.IsZero() {
		p.Date = calendar.FormatDate(in.Query.Date)
		p.Month = buildMonth(in.Query.Date, in.Now, in.Highlights, opts.WeekStart)
	}
	if c := in.Query.Coords; c != nil {
		p.Lat = fmt.Sprintf("%.4f", c.Lat)
		p.Lng = fmt.Sprintf("%.4f", c.Lng)
	}

	if in.Err != nil {
		p.Error = p.T(i18n.Unavailable)
	}

	if d := in.Data; d != nil {
		p.Data = d
		p.Summary = RenderMarkdown(d.SpiritualSummary)
		p.Horoscope = RenderMarkdown(d.Horoscope)
		p.Timeline = d.Timeline(opts.Language != panchang.LanguageEnglish)
		p.Markers = sunMarkers(d.BasicDetails, p.labels)
	}

	if !in.Now.IsZero() && p.Date == calendar.FormatDate(in.Now) {
		p.NowMarker = timeline.NowMarker(in.Now)
		p.ShowNow = true
	}

	return p
}

func sunMarkers(b panchang.BasicDetails, labels i18n.Labels) []Marker {
	var out []Marker
	for _, m := range []struct{ key, raw string }{
		{i18n.Sunrise, b.Sunrise},
		{i18n.Sunset, b.Sunset},
	} {
		if minute, ok := timeline.ParseMinutes(m.raw); ok {
			out = append(out, Marker{Label: labels[m.key], Time: m.raw, Position: timeline.Position(minute)})
		}
	}
	return out
}

func hourTicks() []Tick {
	ticks := make([]Tick, 0, 5)
	for h := 0; h <= 24; h += 6 {
		ticks = append(ticks, Tick{
			Label:    fmt.Sprintf("%02d:00", h%24),
			Position: timeline.Position(h * 60),
		})
	}
	return ticks
}

func buildMonth(selected, now time.Time, highlights panchang.MonthHighlights, weekStart time.Weekday) MonthView {
	year, month := selected.Year(), selected.Month()
	selectedKey := calendar.FormatDate(selected)
	todayKey := ""
	if !now.IsZero() {
		todayKey = calendar.FormatDate(now)
	}

	grid := calendar.MonthGrid(year, month, weekStart)
	weeks := make([][]DayCell, len(grid))
	for i, week := range grid {
		cells := make([]DayCell, len(week))
		for j, c := range week {
			key := c.Key()
			cell := DayCell{
				Day:       c.Day,
				Date:      key,
				InMonth:   c.InMonth,
				Selected:  key == selectedKey,
				Today:     key == todayKey,
				Highlight: panchang.HighlightNeutral,
			}
			if c.InMonth && highlights != nil {
				cell.Highlight = highlights.Highlight(c.Date)
			}
			cells[j] = cell
		}
		weeks[i] = cells
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return MonthView{
		Label:    calendar.MonthLabel(year, month),
		Headers:  calendar.WeekdayHeaders(weekStart),
		Weeks:    weeks,
		PrevDate: calendar.FormatDate(first.AddDate(0, -1, 0)),
		NextDate: calendar.FormatDate(first.AddDate(0, 1, 0)),
	}
}
