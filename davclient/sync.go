package davclient

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cyp0633/calsync/internal/ics"
)

var (
	// ErrNoCollections is returned when discovery yields nothing, including
	// when the discovery request itself failed.
	ErrNoCollections = errors.New("no calendar collections found")
	// ErrNoEvents is returned when collections exist but none held events.
	ErrNoEvents = errors.New("no events retrieved")
)

// Sync discovers the account's collections, fetches every one of them and
// hands each event to sink. It returns the number of events retrieved. A
// sink failure is logged and does not stop the run.
func Sync(ctx context.Context, d Driver, sink EventSink, logger *slog.Logger) (int, error) {
	acc := d.Account()
	logger = logger.With("account", acc.Name, "kind", string(acc.Kind))

	collections := d.DiscoverCollections(ctx)
	if len(collections) == 0 {
		logger.Warn("no calendar collections found")
		return 0, ErrNoCollections
	}
	logger.Info("discovered collections", "count", len(collections))

	total := 0
	for _, c := range collections {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		events := d.FetchEvents(ctx, c)
		if len(events) == 0 {
			logger.Info("no events in collection", "collection", c.DisplayName)
			continue
		}
		for i, ev := range events {
			fields := ics.ExtractFields(string(ev))
			logger.Info("event",
				"collection", c.DisplayName,
				"index", i+1,
				"summary", fields.Summary.OrElse(""),
				"start", fields.DTStart.OrElse(""),
				"end", fields.DTEnd.OrElse(""),
				"location", fields.Location.OrElse(""))
			if sink != nil {
				path, err := sink.SaveEvent(acc, c, i+1, ev, fields)
				if err != nil {
					logger.Error("failed to save event", "collection", c.DisplayName, "index", i+1, "error", err)
				} else {
					logger.Debug("saved event", "path", path)
				}
			}
			total++
		}
	}

	if total == 0 {
		return 0, ErrNoEvents
	}
	logger.Info("sync complete", "events", total)
	return total, nil
}
