package davclient

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRealServerSync runs the generic driver against a real CalDAV server.
// Set these environment variables to run:
// - CALDAV_SERVER_URL (e.g., "https://caldav.fastmail.com/dav/", "https://caldav.icloud.com")
// - CALDAV_USERNAME
// - CALDAV_PASSWORD
func TestRealServerSync(t *testing.T) {
	serverURL := os.Getenv("CALDAV_SERVER_URL")
	username := os.Getenv("CALDAV_USERNAME")
	password := os.Getenv("CALDAV_PASSWORD")

	if serverURL == "" || username == "" || password == "" {
		t.Skip("Real server test requires CALDAV_SERVER_URL, CALDAV_USERNAME, and CALDAV_PASSWORD environment variables")
	}

	ctx := context.Background()

	// Setup debug logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	d, err := NewDriver(Account{
		Kind:        KindGeneric,
		Name:        "integration",
		Username:    username,
		Password:    password,
		URLTemplate: serverURL,
	}, Options{
		Logger:     logger,
		Window:     Window{PastDays: 30, FutureDays: 30},
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	})
	require.NoError(t, err)

	var collections []Collection
	t.Run("Discovery", func(t *testing.T) {
		collections = d.DiscoverCollections(ctx)
		if len(collections) == 0 {
			t.Fatal("No calendars found")
		}
		t.Logf("Found %d calendars:", len(collections))
		for i, c := range collections {
			t.Logf("  Calendar %d: %s (%s)", i+1, c.DisplayName, c.Identifier)
		}
	})

	t.Run("Sync", func(t *testing.T) {
		sink := &recordingSink{}
		n, err := Sync(ctx, d, sink, logger)
		if err != nil {
			// An empty window is a valid outcome on a fresh account.
			require.ErrorIs(t, err, ErrNoEvents)
			t.Log("No events in the last/next 30 days")
			return
		}
		t.Logf("Retrieved %d events", n)
		for _, s := range sink.saved {
			t.Logf("  %s #%d: %s", s.Collection.DisplayName, s.Index, s.Fields.SafeSummary())
		}
	})
}
