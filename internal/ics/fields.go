// Package ics holds the text-level helpers for iCalendar payloads: a flat
// field projection used for naming and logging, and the block scanner the
// merge engine is built on. Neither parses ICS semantically.
package ics

import (
	"strings"
	"unicode"

	"github.com/samber/mo"
)

// Fields is a best-effort projection of the top-level KEY:VALUE lines of a
// raw event block. It is never written back into ICS.
type Fields struct {
	Summary     mo.Option[string]
	DTStart     mo.Option[string]
	DTEnd       mo.Option[string]
	Location    mo.Option[string]
	Description mo.Option[string]
	UID         mo.Option[string]
}

// ExtractFields scans block once, top to bottom. The first occurrence of
// each field wins; later lines never overwrite it. Parameters on DTSTART and
// DTEND (";TZID=...") are ignored and only the value after the first colon
// is kept.
func ExtractFields(block string) Fields {
	var f Fields
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch {
		case key == "SUMMARY":
			setOnce(&f.Summary, value)
		case strings.HasPrefix(key, "DTSTART"):
			setOnce(&f.DTStart, value)
		case strings.HasPrefix(key, "DTEND"):
			setOnce(&f.DTEnd, value)
		case key == "LOCATION":
			setOnce(&f.Location, value)
		case key == "DESCRIPTION":
			setOnce(&f.Description, value)
		case key == "UID":
			setOnce(&f.UID, value)
		}
	}
	return f
}

func setOnce(field *mo.Option[string], value string) {
	if field.IsAbsent() {
		*field = mo.Some(value)
	}
}

// maxSummaryRunes bounds the summary part of event file names.
const maxSummaryRunes = 50

// SafeSummary returns the summary reduced to letters, digits, '-' and '_',
// cut to 50 characters. Events without a summary are named "event".
func (f Fields) SafeSummary() string {
	return Sanitize(f.Summary.OrElse("event"), maxSummaryRunes)
}

// Sanitize keeps letters, digits, '-' and '_' from s. A limit above zero
// caps the result length in runes.
func Sanitize(s string, limit int) string {
	var b strings.Builder
	n := 0
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			continue
		}
		if limit > 0 && n == limit {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
