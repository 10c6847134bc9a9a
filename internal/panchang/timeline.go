package panchang

import (
	"github.com/zapponejosh/panchang-api/internal/metrics"
	"github.com/zapponejosh/panchang-api/internal/timeline"
)

// TimelineItems lists the timing windows in display order, auspicious
// first. Labels use the regional names when localNames is set and one
// is present.
func (d *PanchangData) TimelineItems(localNames bool) []timeline.Item {
	items := make([]timeline.Item, 0, len(d.AuspiciousTimings)+len(d.InauspiciousTimings))
	add := func(list []TimingInfo) {
		for _, t := range list {
			label := t.NameEn
			if localNames && t.NameLocal != "" {
				label = t.NameLocal
			}
			items = append(items, timeline.Item{Label: label, Time: t.Time, Kind: string(t.Status)})
		}
	}
	add(d.AuspiciousTimings)
	add(d.InauspiciousTimings)
	return items
}

// Timeline lays the timing windows out on the 24-hour axis. Windows with
// unparseable times are reported in Omitted and counted.
func (d *PanchangData) Timeline(localNames bool) timeline.Timeline {
	tl := timeline.Build(d.TimelineItems(localNames))
	if n := len(tl.Omitted); n > 0 {
		metrics.OmittedIntervalsTotal.Add(float64(n))
	}
	return tl
}
