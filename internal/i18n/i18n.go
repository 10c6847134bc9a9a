// Package i18n holds the UI label tables for every supported language.
package i18n

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/zapponejosh/panchang-api/internal/panchang"
)

// Label keys used by the page.
const (
	AppTitle     = "appTitle"
	ScanMessage  = "scanMessage"
	DivineTone   = "divineTone"
	Strategy     = "strategy"
	Inauspicious = "inauspicious"
	Auspicious   = "auspicious"
	Sources      = "sources"
	Settings     = "settings"
	Docs         = "docs"
	Month        = "month"
	Era          = "era"
	Tithi        = "tithi"
	Nakshatra    = "nakshatra"
	Sunrise      = "sunrise"
	Sunset       = "sunset"
	Timeline     = "timeline"
	Now          = "now"
	Unavailable  = "unavailable"
	Omitted      = "omitted"
	GitaVerse    = "gitaVerse"
	LuckyColor   = "luckyColor"
	Horoscope    = "horoscope"
)

// Fallback is consulted when a language lacks a key.
const Fallback = panchang.LanguageEnglish

// Labels is one language's key to text table.
type Labels map[string]string

//go:embed translations.yaml
var translationsYAML []byte

var tables = mustLoad(translationsYAML)

func load(data []byte) (map[panchang.Language]Labels, error) {
	var raw map[string]Labels
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse translations: %w", err)
	}

	out := make(map[panchang.Language]Labels, len(raw))
	for _, lang := range panchang.Languages() {
		labels, ok := raw[string(lang)]
		if !ok {
			return nil, fmt.Errorf("language %q missing from translations", lang)
		}
		out[lang] = labels
	}
	return out, nil
}

func mustLoad(data []byte) map[panchang.Language]Labels {
	t, err := load(data)
	if err != nil {
		panic(err)
	}
	return t
}

// Label returns the text for key in lang, falling back to English and then
// to the key itself.
func Label(lang panchang.Language, key string) string {
	if s, ok := tables[lang][key]; ok && s != "" {
		return s
	}
	if s, ok := tables[Fallback][key]; ok && s != "" {
		return s
	}
	return key
}

// All returns a fresh copy of every key resolved for lang, fallbacks
// applied.
func All(lang panchang.Language) Labels {
	out := make(Labels, len(tables[Fallback]))
	for key := range tables[Fallback] {
		out[key] = Label(lang, key)
	}
	for key, s := range tables[lang] {
		out[key] = s
	}
	return out
}
