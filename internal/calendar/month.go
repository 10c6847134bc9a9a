package calendar

import "time"

// Cell is one square of a month grid.
type Cell struct {
	Date    time.Time
	Day     int
	InMonth bool // false for the leading/trailing days of adjacent months
}

// Key returns the cell date as YYYY-MM-DD.
func (c Cell) Key() string {
	return FormatDate(c.Date)
}

// Week is one row of a month grid.
type Week [7]Cell

// MonthGrid lays out a month as whole weeks starting on weekStart.
// Days from the neighbouring months pad the first and last rows.
func MonthGrid(year int, month time.Month, weekStart time.Weekday) []Week {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := DaysIn(year, month)

	offset := (int(first.Weekday()) - int(weekStart) + 7) % 7
	rows := (offset + days + 6) / 7

	cursor := first.AddDate(0, 0, -offset)
	grid := make([]Week, rows)
	for r := range grid {
		for c := 0; c < 7; c++ {
			grid[r][c] = Cell{
				Date:    cursor,
				Day:     cursor.Day(),
				InMonth: cursor.Month() == month,
			}
			cursor = cursor.AddDate(0, 0, 1)
		}
	}
	return grid
}

// WeekdayHeaders returns the weekday names in grid order.
func WeekdayHeaders(weekStart time.Weekday) []string {
	out := make([]string, 7)
	for i := range out {
		out[i] = time.Weekday((int(weekStart) + i) % 7).String()[:3]
	}
	return out
}
