// Package panchang holds the almanac domain model and the service that
// obtains almanacs from an external text generator.
//
// Nothing here computes astronomy. Every substantive field comes from the
// generator; this package only asks, decodes, normalizes and caches.
package panchang

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zapponejosh/panchang-api/internal/calendar"
)

// Sentinel errors
var (
	// ErrInvalidQuery is returned when a query fails validation.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnavailable is returned when the generator fails or answers with
	// something that cannot be decoded.
	ErrUnavailable = errors.New("failed to compute Vedic timings")
)

// -----------------------------------------------------------------
// Timings
// -----------------------------------------------------------------

// Status classifies a timing window.
type Status string

const (
	StatusAuspicious   Status = "auspicious"
	StatusInauspicious Status = "inauspicious"
)

// TimingInfo is a labeled interval as returned by the generator.
// Time is the raw range text, e.g. "1:30 PM - 3:00 PM".
type TimingInfo struct {
	NameEn    string `json:"nameEn"`
	NameLocal string `json:"nameLocal"`
	Time      string `json:"time"`
	Status    Status `json:"status"`
}

// BasicDetails are the headline almanac fields.
type BasicDetails struct {
	Sunrise   string `json:"sunrise"`
	Sunset    string `json:"sunset"`
	Tithi     string `json:"tithi"`
	Nakshatra string `json:"nakshatra"`
	Yoga      string `json:"yoga"`
	Karana    string `json:"karana"`
	Maasam    string `json:"maasam"`
	Samvat    string `json:"samvat"`
	Rahu      string `json:"rahu"`
}

// Source is a citation the generator claims to have used.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// PanchangData is the almanac for one date and location. A value is built
// once per fetch and replaced wholesale by the next one; callers must not
// modify it.
type PanchangData struct {
	Date                string       `json:"date"`
	Location            string       `json:"location"`
	BasicDetails        BasicDetails `json:"basicDetails"`
	InauspiciousTimings []TimingInfo `json:"inauspiciousTimings"`
	AuspiciousTimings   []TimingInfo `json:"auspiciousTimings"`
	SpiritualSummary    string       `json:"spiritualSummary"`
	Horoscope           string       `json:"horoscope"`
	GitaVerse           string       `json:"gitaVerse"`
	LuckyColor          string       `json:"luckyColor"`
	Sources             []Source     `json:"sources"`
}

// -----------------------------------------------------------------
// Language and region
// -----------------------------------------------------------------

// Language selects the regional script for names and UI labels.
type Language string

const (
	LanguageTelugu  Language = "telugu"
	LanguageTamil   Language = "tamil"
	LanguageHindi   Language = "hindi"
	LanguageEnglish Language = "english"
)

// Languages returns every supported language in display order.
func Languages() []Language {
	return []Language{LanguageTelugu, LanguageTamil, LanguageHindi, LanguageEnglish}
}

// IsValid checks if a language is supported.
func (l Language) IsValid() bool {
	for _, valid := range Languages() {
		if l == valid {
			return true
		}
	}
	return false
}

// DisplayName is the English name of the language, used in prompts.
func (l Language) DisplayName() string {
	switch l {
	case LanguageTelugu:
		return "Telugu"
	case LanguageTamil:
		return "Tamil"
	case LanguageHindi:
		return "Hindi"
	default:
		return "English"
	}
}

// ParseLanguage accepts a language tag case-insensitively.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if !l.IsValid() {
		return "", fmt.Errorf("%w: unknown language %q", ErrInvalidQuery, s)
	}
	return l, nil
}

// Region is the calendar tradition used to name months and eras.
type Region string

const (
	RegionAndhra    Region = "andhra"
	RegionTamilNadu Region = "tamilnadu"
	RegionNorth     Region = "north"
)

// Regions returns every supported tradition.
func Regions() []Region {
	return []Region{RegionAndhra, RegionTamilNadu, RegionNorth}
}

// IsValid checks if a region is supported.
func (r Region) IsValid() bool {
	for _, valid := range Regions() {
		if r == valid {
			return true
		}
	}
	return false
}

// Description names the tradition the way the settings panel shows it.
func (r Region) Description() string {
	switch r {
	case RegionTamilNadu:
		return "Tamil Nadu (Solar/Vakya)"
	case RegionNorth:
		return "North India (Purnimanta)"
	default:
		return "Andhra/Telangana (Amanta)"
	}
}

// ParseRegion accepts a region tag case-insensitively.
func ParseRegion(s string) (Region, error) {
	r := Region(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: unknown region %q", ErrInvalidQuery, s)
	}
	return r, nil
}

// -----------------------------------------------------------------
// Queries
// -----------------------------------------------------------------

// maxLocationLen bounds the free-text location that ends up in a prompt.
const maxLocationLen = 120

// Coordinates are an optional position supplied by the client.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Query identifies one day almanac.
type Query struct {
	Date     time.Time
	Location string
	Language Language
	Region   Region
	Coords   *Coordinates
}

// Validate checks the query before it reaches the generator.
func (q Query) Validate() error {
	var errs []error

	if q.Date.IsZero() {
		errs = append(errs, errors.New("date is required"))
	}
	errs = append(errs, validateLocation(q.Location)...)
	if !q.Language.IsValid() {
		errs = append(errs, fmt.Errorf("unknown language %q", q.Language))
	}
	if !q.Region.IsValid() {
		errs = append(errs, fmt.Errorf("unknown region %q", q.Region))
	}
	if c := q.Coords; c != nil {
		if c.Lat < -90 || c.Lat > 90 {
			errs = append(errs, fmt.Errorf("latitude %v out of range", c.Lat))
		}
		if c.Lng < -180 || c.Lng > 180 {
			errs = append(errs, fmt.Errorf("longitude %v out of range", c.Lng))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, errors.Join(errs...))
	}
	return nil
}

// CacheKey is deterministic over every field that changes the answer.
func (q Query) CacheKey() string {
	key := fmt.Sprintf("day|%s|%s|%s|%s",
		calendar.FormatDate(q.Date), normalizeLocation(q.Location), q.Language, q.Region)
	if q.Coords != nil {
		key += fmt.Sprintf("|%.3f,%.3f", q.Coords.Lat, q.Coords.Lng)
	}
	return key
}

// MonthQuery identifies the highlights for one month.
type MonthQuery struct {
	Year     int
	Month    time.Month
	Location string
	Region   Region
}

// Validate checks the month query.
func (mq MonthQuery) Validate() error {
	var errs []error

	if mq.Year < 1900 || mq.Year > 2200 {
		errs = append(errs, fmt.Errorf("year %d out of range", mq.Year))
	}
	if mq.Month < time.January || mq.Month > time.December {
		errs = append(errs, fmt.Errorf("month %d out of range", mq.Month))
	}
	errs = append(errs, validateLocation(mq.Location)...)
	if !mq.Region.IsValid() {
		errs = append(errs, fmt.Errorf("unknown region %q", mq.Region))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, errors.Join(errs...))
	}
	return nil
}

// CacheKey is deterministic over every field that changes the answer.
func (mq MonthQuery) CacheKey() string {
	return fmt.Sprintf("month|%04d-%02d|%s|%s", mq.Year, int(mq.Month), normalizeLocation(mq.Location), mq.Region)
}

// DayHighlight is the coarse classification of a whole day.
type DayHighlight string

const (
	HighlightAuspicious   DayHighlight = "auspicious"
	HighlightInauspicious DayHighlight = "inauspicious"
	HighlightNeutral      DayHighlight = "neutral"
)

// MonthHighlights maps YYYY-MM-DD to a day classification.
type MonthHighlights map[string]DayHighlight

func validateLocation(loc string) []error {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return []error{errors.New("location is required")}
	}
	if len(loc) > maxLocationLen {
		return []error{fmt.Errorf("location longer than %d bytes", maxLocationLen)}
	}
	return nil
}

func normalizeLocation(loc string) string {
	return strings.ToLower(strings.Join(strings.Fields(loc), " "))
}
