package posts

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Abbreviated month names per supported locale. Portuguese follows the
// lowercase, unpunctuated style of pt-BR calendars ("15 mar 2021").
var monthNames = [][12]string{
	{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
	{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
}

var localeMatcher = language.NewMatcher([]language.Tag{
	language.BrazilianPortuguese,
	language.English,
})

// DateFormatter renders publication dates as "dd MMM yyyy".
type DateFormatter struct {
	months   [12]string
	location *time.Location
}

// DefaultDateFormatter formats in pt-BR at UTC.
var DefaultDateFormatter = NewDateFormatter(language.BrazilianPortuguese, time.UTC)

// NewDateFormatter returns a formatter for the closest supported locale to
// tag, converting times into loc first. A nil loc means UTC.
func NewDateFormatter(tag language.Tag, loc *time.Location) DateFormatter {
	_, idx, _ := localeMatcher.Match(tag)
	if loc == nil {
		loc = time.UTC
	}
	return DateFormatter{months: monthNames[idx], location: loc}
}

// ParseDateFormatter builds a formatter from a BCP 47 locale string such as
// "pt-BR" and an IANA zone name such as "America/Sao_Paulo".
func ParseDateFormatter(locale, zone string) (DateFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return DateFormatter{}, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	loc := time.UTC
	if zone != "" {
		loc, err = time.LoadLocation(zone)
		if err != nil {
			return DateFormatter{}, fmt.Errorf("load time zone %q: %w", zone, err)
		}
	}
	return NewDateFormatter(tag, loc), nil
}

// Format returns t as "dd MMM yyyy". A nil time formats as "".
func (f DateFormatter) Format(t *time.Time) string {
	if t == nil {
		return ""
	}
	loc := f.location
	if loc == nil {
		loc = time.UTC
	}
	months := f.months
	if months[0] == "" {
		months = monthNames[0]
	}
	lt := t.In(loc)
	return fmt.Sprintf("%02d %s %d", lt.Day(), months[lt.Month()-1], lt.Year())
}

// FormatDate formats t with DefaultDateFormatter.
func FormatDate(t *time.Time) string {
	return DefaultDateFormatter.Format(t)
}
