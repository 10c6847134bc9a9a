package i18n

import (
	"testing"

	"github.com/zapponejosh/panchang-api/internal/panchang"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		name string
		lang panchang.Language
		key  string
		want string
	}{
		{"telugu title", panchang.LanguageTelugu, AppTitle, "శ్రీ పంచాంగం"},
		{"hindi sunrise", panchang.LanguageHindi, Sunrise, "सूर्योदय"},
		{"english sources", panchang.LanguageEnglish, Sources, "Sources"},
		{"tamil falls back to english", panchang.LanguageTamil, Timeline, "Day Timeline"},
		{"unknown language falls back", panchang.Language("latin"), Era, "Era"},
		{"unknown key returns key", panchang.LanguageTelugu, "noSuchKey", "noSuchKey"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.lang, tt.key); got != tt.want {
				t.Errorf("Label(%s, %s) = %q, want %q", tt.lang, tt.key, got, tt.want)
			}
		})
	}
}

func TestEveryLanguageHasCoreKeys(t *testing.T) {
	core := []string{
		AppTitle, ScanMessage, DivineTone, Strategy, Inauspicious, Auspicious, Sources,
		Settings, Docs, Month, Era, Tithi, Nakshatra, Sunrise, Sunset,
	}
	for _, lang := range panchang.Languages() {
		for _, key := range core {
			if _, ok := tables[lang][key]; !ok {
				t.Errorf("%s is missing %s", lang, key)
			}
		}
	}
}

func TestAll(t *testing.T) {
	labels := All(panchang.LanguageTamil)
	if labels[Tithi] != "திதி" {
		t.Errorf("All(tamil)[tithi] = %q", labels[Tithi])
	}
	if labels[Now] != "Now" {
		t.Errorf("All(tamil)[now] = %q, want English fallback", labels[Now])
	}

	labels[Tithi] = "changed"
	if Label(panchang.LanguageTamil, Tithi) != "திதி" {
		t.Error("All() exposed the shared table")
	}
}

func TestLoad_MissingLanguage(t *testing.T) {
	if _, err := load([]byte("english:\n  appTitle: x\n")); err == nil {
		t.Error("load() succeeded without every language")
	}
}
