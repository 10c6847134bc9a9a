package panchang

import (
	"encoding/json"
	"slices"
)

// Schema is the subset of JSON Schema accepted by strict structured-output
// endpoints. It implements json.Marshaler so it can be handed to a client
// without conversion.
type Schema struct {
	Type                 string             `json:"type"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Enum                 []string           `json:"enum,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`
}

func (s *Schema) MarshalJSON() ([]byte, error) {
	type alias Schema
	return json.Marshal((*alias)(s))
}

// Schema names sent alongside the documents.
const (
	DaySchemaName   = "panchang_day"
	MonthSchemaName = "panchang_month"
)

func str(desc string) *Schema {
	return &Schema{Type: "string", Description: desc}
}

// object builds a closed object that requires every listed property, as
// strict mode demands.
func object(props map[string]*Schema) *Schema {
	closed := false
	required := make([]string, 0, len(props))
	for name := range props {
		required = append(required, name)
	}
	slices.Sort(required)
	return &Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: &closed,
	}
}

func timingSchema() *Schema {
	return object(map[string]*Schema{
		"nameEn":    str("Name in English"),
		"nameLocal": str("Name in the selected regional script"),
		"time":      str("Range formatted exactly as " + TimeFormat),
		"status": {
			Type: "string",
			Enum: []string{string(StatusAuspicious), string(StatusInauspicious)},
		},
	})
}

// DaySchema describes PanchangData.
func DaySchema() *Schema {
	return object(map[string]*Schema{
		"date":     str("Date as YYYY-MM-DD"),
		"location": str("Location the timings were computed for"),
		"basicDetails": object(map[string]*Schema{
			"sunrise":   str("Sunrise as HH:MM AM/PM"),
			"sunset":    str("Sunset as HH:MM AM/PM"),
			"tithi":     str("Tithi with end time"),
			"nakshatra": str("Nakshatra with end time"),
			"yoga":      str("Yoga"),
			"karana":    str("Karana"),
			"maasam":    str("Lunar month name"),
			"samvat":    str("Samvatsara / era name"),
			"rahu":      str("Rahu Kalam range"),
		}),
		"inauspiciousTimings": {Type: "array", Items: timingSchema()},
		"auspiciousTimings":   {Type: "array", Items: timingSchema()},
		"spiritualSummary":    str("One-line professional and spiritual guidance"),
		"horoscope":           str("Short daily outlook"),
		"gitaVerse":           str("One Bhagavad Gita verse with reference"),
		"luckyColor":          str("Lucky colour of the day"),
		"sources": {
			Type: "array",
			Items: object(map[string]*Schema{
				"uri":   str("Source URL"),
				"title": str("Source title"),
			}),
		},
	})
}

// MonthSchema describes the month highlight list.
func MonthSchema() *Schema {
	return object(map[string]*Schema{
		"days": {
			Type: "array",
			Items: object(map[string]*Schema{
				"date": str("Date as YYYY-MM-DD"),
				"highlight": {
					Type: "string",
					Enum: []string{
						string(HighlightAuspicious),
						string(HighlightInauspicious),
						string(HighlightNeutral),
					},
				},
			}),
		},
	})
}
