package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CleanupReport counts what a sweep removed and what it failed to remove.
type CleanupReport struct {
	TempFiles int
	EventDirs int
	Failures  int
}

// CleanupStale removes diagnostic XML files and whole account event trees
// whose modification time is more than maxAgeDays old. Per-item failures
// are logged and counted; the sweep always finishes.
func (m *Merger) CleanupStale(maxAgeDays int) (CleanupReport, error) {
	var report CleanupReport
	if maxAgeDays < 0 {
		return report, fmt.Errorf("invalid cleanup age %d days", maxAgeDays)
	}
	cutoff := m.now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
	m.logger.Info("cleaning up stale files", "older_than_days", maxAgeDays)

	xmlFiles, err := filepath.Glob(filepath.Join(m.paths.Temp, "*.xml"))
	if err != nil {
		return report, fmt.Errorf("failed to list temp files: %w", err)
	}
	for _, path := range xmlFiles {
		if !olderThan(path, cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			m.logger.Warn("failed to remove temp file", "path", path, "error", err)
			report.Failures++
			continue
		}
		m.logger.Debug("removed temp file", "path", path)
		report.TempFiles++
	}

	for _, kind := range m.kinds {
		dirs, err := m.paths.AccountDirs(kind)
		if err != nil {
			m.logger.Warn("failed to list event directories", "kind", kind, "error", err)
			report.Failures++
			continue
		}
		for _, dir := range dirs {
			if !olderThan(dir, cutoff) {
				continue
			}
			if err := os.RemoveAll(dir); err != nil {
				m.logger.Warn("failed to remove event directory", "path", dir, "error", err)
				report.Failures++
				continue
			}
			m.logger.Debug("removed event directory", "path", dir)
			report.EventDirs++
		}
	}

	m.logger.Info("cleanup complete",
		"temp_files", report.TempFiles,
		"event_dirs", report.EventDirs,
		"failures", report.Failures)
	return report, nil
}

func olderThan(path string, cutoff time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.ModTime().Before(cutoff)
}
