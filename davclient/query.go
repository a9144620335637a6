package davclient

import (
	"context"
	"strings"

	davxml "github.com/cyp0633/calsync/internal/xml"
)

// DefaultDingTalkEventsBase is where DingTalk serves collection contents,
// independently of the hrefs its discovery reports.
const DefaultDingTalkEventsBase = "https://calendar.dingtalk.com/dav/"

// queryDriver fetches each collection with a single time-ranged
// calendar-query REPORT.
type queryDriver struct {
	*davDriver
	eventsBase string
}

func newQueryDriver(acc Account, opts Options) (Driver, error) {
	base, err := newDAVDriver(acc, opts, []davxml.Name{
		davxml.PropDisplayName,
		davxml.PropResourceType,
		davxml.PropCalendarDescription,
	})
	if err != nil {
		return nil, err
	}
	eventsBase := opts.EventsBaseURL
	if eventsBase == "" {
		eventsBase = DefaultDingTalkEventsBase
	}
	return &queryDriver{davDriver: base, eventsBase: eventsBase}, nil
}

// DiscoverCollections identifies each calendar by the last segment of its
// href.
func (d *queryDriver) DiscoverCollections(ctx context.Context) []Collection {
	var out []Collection
	for _, resp := range d.discover(ctx) {
		c := Collection{DisplayName: displayName(resp), Identifier: lastSegment(resp.Href)}
		d.logger.Info("found collection", "name", c.DisplayName, "collection", c.Identifier)
		out = append(out, c)
	}
	return out
}

// FetchEvents queries the collection for events inside the sync window.
func (d *queryDriver) FetchEvents(ctx context.Context, c Collection) []RawEvent {
	location := d.eventsURL(c)
	tr := d.opts.Window.timeRange(d.opts.Now())
	d.logger.Info("fetching events",
		"collection", c.DisplayName,
		"url", location,
		"start", tr.Start.Format(davxml.ICSTimeFormat),
		"end", tr.End.Format(davxml.ICSTimeFormat))

	req := &davxml.CalendarQueryRequest{
		Prop:      []davxml.Name{davxml.PropGetETag, davxml.PropCalendarData},
		Component: "VEVENT",
		TimeRange: tr,
	}
	ms, ok := d.report(ctx, location, req.ToXML(), "events_"+c.Identifier)
	if !ok {
		return nil
	}
	events := eventsFrom(ms)
	d.logger.Info("fetched events", "collection", c.DisplayName, "count", len(events))
	return events
}

func (d *queryDriver) eventsURL(c Collection) string {
	return strings.TrimSuffix(d.eventsBase, "/") + "/" + d.account.Username + "/" + c.Identifier + "/"
}
