// Package theme is the fixed catalog of page colour schemes.
//
// The catalog is read once from the embedded themes.yaml and never
// changes afterwards; lookups hand out copies.
package theme

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Theme identifies one colour scheme.
type Theme string

const (
	Executive    Theme = "executive"
	Temple       Theme = "temple"
	Godavari     Theme = "godavari"
	Parchment    Theme = "parchment"
	Tirumala     Theme = "tirumala"
	HighContrast Theme = "highContrast"
)

// Default is used when no theme or an unknown one is requested.
const Default = Executive

// All returns every theme in catalog order.
func All() []Theme {
	return []Theme{Executive, Temple, Godavari, Parchment, Tirumala, HighContrast}
}

// cycle is the order the header toggle steps through. Parchment and
// HighContrast are reachable only by selecting them explicitly.
var cycle = []Theme{Executive, Temple, Godavari, Tirumala}

// IsValid checks if a theme is in the catalog.
func (t Theme) IsValid() bool {
	_, ok := catalog[t]
	return ok
}

// Parse matches s against the catalog case-insensitively.
func Parse(s string) (Theme, error) {
	s = strings.TrimSpace(s)
	for _, t := range All() {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// Next returns the theme after t in the toggle cycle. A theme outside the
// cycle moves to Executive.
func Next(t Theme) Theme {
	for i, c := range cycle {
		if c == t {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return Executive
}

// Gradient is the three-stop timeline background.
type Gradient struct {
	From string `yaml:"from" json:"from"`
	Via  string `yaml:"via" json:"via"`
	To   string `yaml:"to" json:"to"`
}

// Record is the full palette of a theme. Colours are CSS values.
type Record struct {
	ID             Theme    `yaml:"-" json:"id"`
	DisplayName    string   `yaml:"display_name" json:"display_name"`
	Background     string   `yaml:"background" json:"background"`
	Card           string   `yaml:"card" json:"card"`
	Text           string   `yaml:"text" json:"text"`
	Accent         string   `yaml:"accent" json:"accent"`
	Secondary      string   `yaml:"secondary" json:"secondary"`
	Border         string   `yaml:"border" json:"border"`
	Timeline       Gradient `yaml:"timeline" json:"timeline"`
	Pattern        string   `yaml:"pattern" json:"pattern"` // stripes or dots
	PatternOpacity float64  `yaml:"pattern_opacity" json:"pattern_opacity"`
	Glow           bool     `yaml:"glow" json:"glow"`
}

//go:embed themes.yaml
var themesYAML []byte

var catalog = mustLoad(themesYAML)

func load(data []byte) (map[Theme]Record, error) {
	var raw map[string]Record
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse themes: %w", err)
	}

	out := make(map[Theme]Record, len(raw))
	for _, t := range All() {
		rec, ok := raw[string(t)]
		if !ok {
			return nil, fmt.Errorf("theme %q missing from catalog", t)
		}
		if rec.Background == "" || rec.Text == "" || rec.Accent == "" {
			return nil, fmt.Errorf("theme %q is incomplete", t)
		}
		rec.ID = t
		out[t] = rec
	}
	return out, nil
}

func mustLoad(data []byte) map[Theme]Record {
	c, err := load(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the record for t, or the default theme's record when t is
// unknown.
func Get(t Theme) Record {
	if rec, ok := catalog[t]; ok {
		return rec
	}
	return catalog[Default]
}

// Records returns every record in catalog order.
func Records() []Record {
	out := make([]Record, 0, len(catalog))
	for _, t := range All() {
		out = append(out, catalog[t])
	}
	return out
}
