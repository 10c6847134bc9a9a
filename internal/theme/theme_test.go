package theme

import "testing"

func TestCatalogComplete(t *testing.T) {
	for _, th := range All() {
		rec := Get(th)
		if rec.ID != th {
			t.Errorf("Get(%s).ID = %s", th, rec.ID)
		}
		if rec.Timeline.From == "" || rec.Timeline.To == "" {
			t.Errorf("%s has no timeline gradient", th)
		}
	}
	if got := len(Records()); got != 6 {
		t.Errorf("len(Records()) = %d, want 6", got)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	rec := Get(Temple)
	rec.Accent = "#000000"

	again := Get(Temple)
	if again.Accent != "#ff9933" {
		t.Errorf("catalog mutated through a lookup: accent = %s", again.Accent)
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		in   Theme
		want Theme
	}{
		{Executive, Temple},
		{Temple, Godavari},
		{Godavari, Tirumala},
		{Tirumala, Executive},
		{Parchment, Executive},
		{HighContrast, Executive},
		{Theme("neon"), Executive},
	}
	for _, tt := range tests {
		if got := Next(tt.in); got != tt.want {
			t.Errorf("Next(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseAndGet(t *testing.T) {
	if got, err := Parse("HIGHCONTRAST"); err != nil || got != HighContrast {
		t.Errorf("Parse(HIGHCONTRAST) = %s, %v", got, err)
	}
	if _, err := Parse("neon"); err == nil {
		t.Error("Parse(neon) succeeded")
	}
	if got := Get(Theme("neon")); got.ID != Default {
		t.Errorf("Get(unknown).ID = %s, want %s", got.ID, Default)
	}
	if !Godavari.IsValid() || Theme("x").IsValid() {
		t.Error("IsValid mismatch")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "executive: [unterminated"},
		{"missing theme", "executive:\n  background: '#fff'\n  text: '#000'\n  accent: '#f00'\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := load([]byte(tt.yaml)); err == nil {
				t.Error("load() succeeded, want error")
			}
		})
	}
}
