// Package merge concatenates the event files written by a sync into
// consolidated calendar documents and sweeps stale artifacts.
//
// Merging is textual: VEVENT and VTIMEZONE blocks are lifted verbatim from
// each source and wrapped in a fresh VCALENDAR envelope. Nothing is parsed
// or validated as iCalendar.
package merge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyp0633/calsync/davclient"
	"github.com/cyp0633/calsync/internal/ics"
	"github.com/cyp0633/calsync/internal/storage"
)

// ErrNoSources is returned when there is nothing to merge. No output is
// written in that case.
var ErrNoSources = errors.New("no ICS files to merge")

const (
	prodID          = "-//calsync//CalDAV Sync Tool//EN"
	calendarDesc    = "Merged by calsync"
	allCalendarName = "All accounts merged"
	publicPrefix    = "all_calendars_"
)

// Merger builds merged calendars from the storage layout.
type Merger struct {
	paths  storage.Paths
	kinds  []davclient.Kind
	logger *slog.Logger
	now    func() time.Time
}

// NewMerger returns a Merger over paths. kinds fixes which account kinds
// MergeAll collects and in what order; nil means every registered kind.
func NewMerger(paths storage.Paths, kinds []davclient.Kind, logger *slog.Logger) *Merger {
	if kinds == nil {
		kinds = davclient.Kinds()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Merger{paths: paths, kinds: kinds, logger: logger, now: time.Now}
}

// SetClock replaces the clock used for output names and cleanup ages.
func (m *Merger) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// MergeFiles writes the blocks of files into one calendar at outputPath and
// returns that path. VTIMEZONE blocks are de-duplicated by exact text,
// VEVENT blocks keep source order. Unreadable sources are skipped.
func (m *Merger) MergeFiles(files []string, outputPath, calendarName string) (string, error) {
	if len(files) == 0 {
		m.logger.Info("no ICS files to merge")
		return "", ErrNoSources
	}
	m.logger.Info("merging ICS files", "files", len(files), "output", outputPath)

	var events, timezones []string
	seen := make(map[string]bool)
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			m.logger.Warn("failed to read ICS file", "path", file, "error", err)
			continue
		}
		spans := ics.ScanSpans(string(data))
		events = append(events, spans.Events...)
		for _, tz := range spans.Timezones {
			if !seen[tz] {
				seen[tz] = true
				timezones = append(timezones, tz)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(render(calendarName, timezones, events)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write merged calendar: %w", err)
	}

	m.logger.Info("merge complete", "output", outputPath, "events", len(events), "timezones", len(timezones))
	return outputPath, nil
}

func render(calendarName string, timezones, events []string) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"X-WR-CALNAME:" + calendarName,
		"X-WR-CALDESC:" + calendarDesc,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}
	lines = append(lines, timezones...)
	lines = append(lines, events...)
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\n")
}

// MergeByKind merges every event file of one account kind into a
// timestamped file in the merged directory.
func (m *Merger) MergeByKind(kind davclient.Kind) (string, error) {
	files, err := m.paths.EventFiles(kind)
	if err != nil {
		return "", err
	}
	m.logger.Info("collected ICS files", "kind", kind, "files", len(files))
	if len(files) == 0 {
		return "", fmt.Errorf("%s: %w", kind, ErrNoSources)
	}

	output := filepath.Join(m.paths.Merged,
		fmt.Sprintf("%s_merged_%s.ics", kind, m.now().Format(storage.FileTimestampFormat)))
	return m.MergeFiles(files, output, strings.ToUpper(string(kind))+" merged calendar")
}

// MergeAll merges the event files of every kind into the single public
// calendar. Existing public calendars are removed first, so at most one
// remains. An empty suffix uses the current timestamp.
func (m *Merger) MergeAll(suffix string) (string, error) {
	var files []string
	for _, kind := range m.kinds {
		kindFiles, err := m.paths.EventFiles(kind)
		if err != nil {
			return "", err
		}
		m.logger.Info("collected ICS files", "kind", kind, "files", len(kindFiles))
		files = append(files, kindFiles...)
	}
	if len(files) == 0 {
		m.logger.Info("no ICS files found for any account")
		return "", ErrNoSources
	}

	m.removePublic()

	if suffix == "" {
		suffix = m.now().Format(storage.FileTimestampFormat)
	}
	output := filepath.Join(m.paths.Public, publicPrefix+suffix+".ics")
	return m.MergeFiles(files, output, allCalendarName)
}

func (m *Merger) removePublic() {
	existing, err := filepath.Glob(filepath.Join(m.paths.Public, publicPrefix+"*.ics"))
	if err != nil {
		m.logger.Warn("failed to list public calendars", "error", err)
		return
	}
	for _, path := range existing {
		if err := os.Remove(path); err != nil {
			m.logger.Warn("failed to remove public calendar", "path", path, "error", err)
			continue
		}
		m.logger.Info("removed public calendar", "path", path)
	}
}
