package calendar

import (
	"testing"
	"time"
)

func TestParseAndFormatDate(t *testing.T) {
	d, err := ParseDateString("2025-01-14")
	if err != nil {
		t.Fatalf("ParseDateString: %v", err)
	}
	if got := FormatDate(d); got != "2025-01-14" {
		t.Errorf("FormatDate() = %q, want 2025-01-14", got)
	}
	if got := DayName(d); got != "Tuesday" {
		t.Errorf("DayName() = %q, want Tuesday", got)
	}

	for _, bad := range []string{"", "2025-13-01", "14/01/2025", "2025-02-30"} {
		if _, err := ParseDateString(bad); err == nil {
			t.Errorf("ParseDateString(%q) succeeded, want error", bad)
		}
	}
}

func TestParseDateIn(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	d, err := ParseDateIn("2025-03-01", loc)
	if err != nil {
		t.Fatalf("ParseDateIn: %v", err)
	}
	if d.Location() != loc || d.Hour() != 0 {
		t.Errorf("ParseDateIn() = %v, want midnight IST", d)
	}
}

func TestDaysIn(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2025, time.January, 31},
		{2025, time.February, 28},
		{2024, time.February, 29},
		{2025, time.April, 30},
		{2025, time.December, 31},
	}
	for _, tt := range tests {
		if got := DaysIn(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysIn(%d, %s) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestMonthGrid_MondayStart(t *testing.T) {
	// January 2025 starts on a Wednesday.
	grid := MonthGrid(2025, time.January, time.Monday)
	if len(grid) != 5 {
		t.Fatalf("len(grid) = %d, want 5", len(grid))
	}

	first := grid[0]
	if first[0].InMonth || first[1].InMonth {
		t.Error("Monday and Tuesday of the first row should belong to December")
	}
	if first[0].Key() != "2024-12-30" {
		t.Errorf("grid[0][0] = %s, want 2024-12-30", first[0].Key())
	}
	if !first[2].InMonth || first[2].Day != 1 {
		t.Errorf("grid[0][2] = %+v, want 1 January", first[2])
	}

	last := grid[len(grid)-1]
	if last[6].Key() != "2025-02-02" {
		t.Errorf("last cell = %s, want 2025-02-02", last[6].Key())
	}

	inMonth := 0
	for _, w := range grid {
		for _, c := range w {
			if c.InMonth {
				inMonth++
			}
		}
	}
	if inMonth != 31 {
		t.Errorf("in-month cells = %d, want 31", inMonth)
	}
}

func TestMonthGrid_SundayStart(t *testing.T) {
	// February 2026 starts on a Sunday and fills exactly four rows.
	grid := MonthGrid(2026, time.February, time.Sunday)
	if len(grid) != 4 {
		t.Fatalf("len(grid) = %d, want 4", len(grid))
	}
	if grid[0][0].Key() != "2026-02-01" {
		t.Errorf("grid[0][0] = %s, want 2026-02-01", grid[0][0].Key())
	}
}

func TestWeekdayHeaders(t *testing.T) {
	got := WeekdayHeaders(time.Monday)
	want := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("WeekdayHeaders(Monday) = %v, want %v", got, want)
		}
	}
}
