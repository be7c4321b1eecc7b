package views

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Locale selects month names and the document language.
type Locale int

const (
	PortugueseBR Locale = iota
	EnglishUS
)

var (
	supportedLocales = []language.Tag{language.BrazilianPortuguese, language.AmericanEnglish}
	localeMatcher    = language.NewMatcher(supportedLocales)
)

var shortMonths = map[Locale][12]string{
	PortugueseBR: {"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
	EnglishUS:    {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
}

// MatchLocale picks the closest supported locale for a BCP 47 tag.
// Unparseable or unsupported tags fall back to Brazilian Portuguese.
func MatchLocale(tag string) Locale {
	t, err := language.Parse(tag)
	if err != nil {
		return PortugueseBR
	}
	_, idx, conf := localeMatcher.Match(t)
	if conf == language.No {
		return PortugueseBR
	}
	return Locale(idx)
}

// Tag returns the BCP 47 tag for the locale.
func (l Locale) Tag() language.Tag {
	if int(l) < 0 || int(l) >= len(supportedLocales) {
		return supportedLocales[0]
	}
	return supportedLocales[l]
}

// FormatDate renders t as "dd MMM yyyy", e.g. "19 abr 2021".
func FormatDate(t time.Time, l Locale) string {
	months, ok := shortMonths[l]
	if !ok {
		months = shortMonths[PortugueseBR]
	}
	return fmt.Sprintf("%02d %s %d", t.Day(), months[t.Month()-1], t.Year())
}
