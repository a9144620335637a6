package storage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cyp0633/calsync/davclient"
	"github.com/cyp0633/calsync/internal/ics"
)

// FileTimestampFormat stamps event and merge output file names.
const FileTimestampFormat = "20060102_150405"

// Persister writes each retrieved event to its own file below the
// account's event tree.
type Persister struct {
	paths  Paths
	now    func() time.Time
	logger *slog.Logger
}

// NewPersister returns a Persister rooted at paths. A nil now uses
// time.Now.
func NewPersister(paths Paths, now func() time.Time, logger *slog.Logger) *Persister {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Persister{paths: paths, now: now, logger: logger}
}

// SaveEvent writes ev to
// {root}/{kind}_events_{username}/{collection}/{timestamp}_{index}_{summary}.ics.
func (p *Persister) SaveEvent(acc davclient.Account, c davclient.Collection, index int, ev davclient.RawEvent, fields ics.Fields) (string, error) {
	dir := filepath.Join(p.paths.AccountDir(acc.Kind, acc.Username), collectionDirName(c.DisplayName))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create event directory: %w", err)
	}

	name := fmt.Sprintf("%s_%d_%s.ics", p.now().Format(FileTimestampFormat), index, fields.SafeSummary())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(ev), 0o644); err != nil {
		return "", fmt.Errorf("failed to write event file: %w", err)
	}
	p.logger.Debug("event saved", "path", path)
	return path, nil
}
