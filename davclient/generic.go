package davclient

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cyp0633/calsync/internal/httpclient"
	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

// genericDriver talks to standards-compliant servers through go-webdav:
// principal and home-set discovery, then a time-ranged calendar-query.
type genericDriver struct {
	account Account
	opts    Options
	client  *caldav.Client
	logger  *slog.Logger
}

func newGenericDriver(acc Account, opts Options) (Driver, error) {
	logger := opts.Logger.With("vendor", acc.Kind.Vendor(), "account", acc.Name)
	httpClient := httpclient.NewClient(opts.HTTPClient, acc.Username, acc.Password, logger)
	client, err := caldav.NewClient(httpClient, acc.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	return &genericDriver{account: acc, opts: opts, client: client, logger: logger}, nil
}

func (d *genericDriver) Account() Account {
	return d.account
}

// DiscoverCollections follows current-user-principal and calendar-home-set.
// Collections that declare a component set without VEVENT are skipped.
func (d *genericDriver) DiscoverCollections(ctx context.Context) []Collection {
	ctx, cancel := context.WithTimeout(ctx, d.opts.MetadataTimeout)
	defer cancel()

	d.logger.Info("discovering calendar collections", "url", d.account.URL())
	principal, err := d.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		d.logger.Warn("failed to find current user principal", "error", err)
		return nil
	}
	homeSet, err := d.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		d.logger.Warn("failed to find calendar home set", "principal", principal, "error", err)
		return nil
	}
	calendars, err := d.client.FindCalendars(ctx, homeSet)
	if err != nil {
		d.logger.Warn("failed to list calendars", "home_set", homeSet, "error", err)
		return nil
	}

	var out []Collection
	for _, cal := range calendars {
		if !supportsEvents(cal.SupportedComponentSet) {
			d.logger.Debug("skipping calendar without VEVENT support", "path", cal.Path)
			continue
		}
		name := cal.Name
		if name == "" {
			name = UnknownCalendar
		}
		c := Collection{DisplayName: name, Identifier: cal.Path}
		d.logger.Info("found collection", "name", c.DisplayName, "path", c.Identifier)
		out = append(out, c)
	}
	return out
}

// FetchEvents queries the collection and re-encodes each object as ICS text.
func (d *genericDriver) FetchEvents(ctx context.Context, c Collection) []RawEvent {
	ctx, cancel := context.WithTimeout(ctx, d.opts.BulkTimeout)
	defer cancel()

	start, end := d.opts.Window.Range(d.opts.Now())
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: start,
				End:   end,
			}},
		},
	}

	d.logger.Info("fetching events", "collection", c.DisplayName, "path", c.Identifier)
	objects, err := d.client.QueryCalendar(ctx, c.Identifier, query)
	if err != nil {
		d.logger.Warn("calendar query failed", "collection", c.DisplayName, "error", err)
		return nil
	}

	var events []RawEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		var buf bytes.Buffer
		if err := ical.NewEncoder(&buf).Encode(obj.Data); err != nil {
			d.logger.Warn("failed to encode calendar object", "path", obj.Path, "error", err)
			continue
		}
		events = append(events, RawEvent(strings.TrimSpace(buf.String())))
	}
	d.logger.Info("fetched events", "collection", c.DisplayName, "count", len(events))
	return events
}

func supportsEvents(components []string) bool {
	if len(components) == 0 {
		return true
	}
	for _, comp := range components {
		if strings.EqualFold(comp, ical.CompEvent) {
			return true
		}
	}
	return false
}
