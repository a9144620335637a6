package ics

import "regexp"

// Component spans are matched lazily so adjacent blocks stay separate.
var (
	veventPattern    = regexp.MustCompile(`(?s)BEGIN:VEVENT.*?END:VEVENT`)
	vtimezonePattern = regexp.MustCompile(`(?s)BEGIN:VTIMEZONE.*?END:VTIMEZONE`)
)

// Spans are the component blocks found in one ICS text, each kept verbatim.
type Spans struct {
	Events    []string
	Timezones []string
}

// ScanSpans extracts every VEVENT and VTIMEZONE block of text in order of
// appearance.
func ScanSpans(text string) Spans {
	return Spans{
		Events:    veventPattern.FindAllString(text, -1),
		Timezones: vtimezonePattern.FindAllString(text, -1),
	}
}

// CountEvents returns the number of VEVENT blocks in text.
func CountEvents(text string) int {
	return len(veventPattern.FindAllStringIndex(text, -1))
}
