package storage

import (
	"io"
	"log/slog"
	"os"
)

// Diagnostics keeps the raw multistatus bodies in the temp directory. A
// later response for the same operation overwrites the earlier file.
type Diagnostics struct {
	paths  Paths
	logger *slog.Logger
}

func NewDiagnostics(paths Paths, logger *slog.Logger) *Diagnostics {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Diagnostics{paths: paths, logger: logger}
}

// SaveResponse never fails the caller; write errors are only logged.
func (d *Diagnostics) SaveResponse(vendor, operation, username string, body []byte) {
	if err := os.MkdirAll(d.paths.Temp, 0o755); err != nil {
		d.logger.Warn("failed to create temp directory", "dir", d.paths.Temp, "error", err)
		return
	}
	path := d.paths.DiagnosticPath(vendor, operation, username)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		d.logger.Warn("failed to save response", "path", path, "error", err)
		return
	}
	d.logger.Debug("response saved", "path", path, "bytes", len(body))
}
