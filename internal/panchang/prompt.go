package panchang

import (
	"fmt"
	"strings"

	"github.com/zapponejosh/panchang-api/internal/calendar"
)

// SystemPrompt frames every request sent to the generator.
const SystemPrompt = `You are the supreme authority on Telugu Panchangam and Vedic Jyotish.
Answer only with JSON that matches the requested schema. Never add prose outside the JSON.`

// TimeFormat is the exact range format requested for every timing window.
const TimeFormat = "HH:MM AM/PM - HH:MM AM/PM"

// DayPrompt builds the request text for a full day almanac.
func DayPrompt(q Query) string {
	var b strings.Builder

	date := calendar.FormatDate(q.Date)
	fmt.Fprintf(&b, "Context: deliver production-ready precision for %s (%s) at %s.\n",
		date, calendar.DayName(q.Date), strings.TrimSpace(q.Location))
	if q.Coords != nil {
		fmt.Fprintf(&b, "Observer coordinates: latitude %.4f, longitude %.4f.\n", q.Coords.Lat, q.Coords.Lng)
	}
	fmt.Fprintf(&b, "Calendar tradition: %s.\n", q.Region.Description())

	b.WriteString("\nCRITICAL VEDIC FORMULAS:\n")
	fmt.Fprintf(&b, "1. Sunrise/Sunset: accurate to the minute for %s.\n", strings.TrimSpace(q.Location))
	b.WriteString("2. Sandhya timings:\n")
	b.WriteString("   - Pratah Sandhya (sunrise +/- 24 mins)\n")
	b.WriteString("   - Madhyahna Sandhya (noon +/- 24 mins)\n")
	b.WriteString("   - Sayam Sandhya (sunset +/- 24 mins)\n")
	b.WriteString("3. Divisions: Rahu Kalam, Yamagandam, Gulika based on weekday 8-part divisions.\n")
	b.WriteString("4. Muhurtas: Abhijit (8th Muhurta), Brahma Muhurta (starts 96 mins before sunrise).\n")
	b.WriteString("5. Amrita Kalam/Varjyam: calculate based on Nakshatra duration.\n")

	b.WriteString("\nOUTPUT REQUIREMENTS:\n")
	if q.Language == LanguageEnglish {
		b.WriteString("- English only; set nameLocal equal to nameEn.\n")
	} else {
		fmt.Fprintf(&b, "- Bilingual %s/English: nameLocal in %s script, nameEn in English.\n",
			q.Language.DisplayName(), q.Language.DisplayName())
	}
	b.WriteString("- One Bhagavad Gita verse relevant to the day's planetary alignment in gitaVerse.\n")
	b.WriteString("- A lucky colour and a one-line professional/spiritual guidance in spiritualSummary.\n")
	b.WriteString("- List the web sources you relied on in sources.\n")

	b.WriteString("\nJSON SCHEMA ENFORCEMENT:\n")
	fmt.Fprintf(&b, "Return strictly JSON. Every \"time\" field must be exactly %q.\n", TimeFormat)

	return b.String()
}

// MonthPrompt builds the request text for month highlights.
func MonthPrompt(mq MonthQuery) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the Vedic Panchang for the entire month of %s in %s (%s).\n",
		calendar.MonthLabel(mq.Year, mq.Month), strings.TrimSpace(mq.Location), mq.Region.Description())
	b.WriteString("For each day of the month, determine if the day is generally 'auspicious' ")
	b.WriteString("(e.g. has powerful Subha Muhurtas, favorable Tithi/Nakshatra for work), ")
	b.WriteString("'inauspicious' (e.g. Amavasya, heavy Rahu influence, bad Yoga), or 'neutral'.\n")
	fmt.Fprintf(&b, "Return one entry per day, %d entries in total, each with the date in \"YYYY-MM-DD\" format ",
		calendar.DaysIn(mq.Year, mq.Month))
	b.WriteString("and a highlight of \"auspicious\", \"inauspicious\" or \"neutral\".\n")

	return b.String()
}
