package home

import (
	"fmt"
	"time"
)

// ptBRShortMonths are the pt-BR abbreviated month names, lowercase as the
// locale writes them.
var ptBRShortMonths = [...]string{
	"jan", "fev", "mar", "abr", "mai", "jun",
	"jul", "ago", "set", "out", "nov", "dez",
}

// FormatDate renders t as "dd MMM yyyy" in pt-BR (e.g. "19 abr 2021") in the
// given location. A nil time renders as the empty string and a nil location
// means UTC.
func FormatDate(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return fmt.Sprintf("%02d %s %d", lt.Day(), ptBRShortMonths[lt.Month()-1], lt.Year())
}

// isoDate renders t for the datetime attribute of <time>.
func isoDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
