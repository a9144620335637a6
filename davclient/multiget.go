package davclient

import (
	"context"
	"net/url"
	"strings"

	"github.com/cyp0633/calsync/internal/ics"
	davxml "github.com/cyp0633/calsync/internal/xml"
)

// icsExtension marks collection members that hold calendar objects.
const icsExtension = ".ics"

// multigetDriver lists the members of a collection with PROPFIND and then
// fetches them in one calendar-multiget REPORT.
type multigetDriver struct {
	*davDriver
}

func newMultigetDriver(acc Account, opts Options) (Driver, error) {
	base, err := newDAVDriver(acc, opts, []davxml.Name{
		davxml.PropDisplayName,
		davxml.PropResourceType,
		davxml.PropCalendarDescription,
		davxml.PropSupportedComponents,
	})
	if err != nil {
		return nil, err
	}
	return &multigetDriver{davDriver: base}, nil
}

// DiscoverCollections identifies each calendar by its absolute URL.
func (d *multigetDriver) DiscoverCollections(ctx context.Context) []Collection {
	var out []Collection
	for _, resp := range d.discover(ctx) {
		c := Collection{DisplayName: displayName(resp), Identifier: d.absolute(resp.Href)}
		d.logger.Info("found collection", "name", c.DisplayName, "href", c.Identifier)
		out = append(out, c)
	}
	return out
}

// FetchEvents runs the list-then-fetch exchange. An empty member list ends
// the exchange before the multiget.
func (d *multigetDriver) FetchEvents(ctx context.Context, c Collection) []RawEvent {
	name := ics.Sanitize(c.DisplayName, 0)
	if name == "" {
		name = "calendar"
	}

	hrefs := d.listMembers(ctx, c, name)
	if len(hrefs) == 0 {
		d.logger.Info("collection has no calendar objects", "collection", c.DisplayName)
		return nil
	}

	d.logger.Info("fetching events", "collection", c.DisplayName, "members", len(hrefs))
	req := &davxml.CalendarMultigetRequest{
		Prop:  []davxml.Name{davxml.PropGetETag, davxml.PropCalendarData},
		Hrefs: hrefs,
	}
	ms, ok := d.report(ctx, c.Identifier, req.ToXML(), "events_"+name)
	if !ok {
		return nil
	}
	events := eventsFrom(ms)
	d.logger.Info("fetched events", "collection", c.DisplayName, "count", len(events))
	return events
}

func (d *multigetDriver) listMembers(ctx context.Context, c Collection, name string) []string {
	req := &davxml.PropfindRequest{Prop: []davxml.Name{davxml.PropGetETag, davxml.PropResourceType}}
	ms, ok := d.propfind(ctx, c.Identifier, req.ToXML(), "members_"+name)
	if !ok {
		return nil
	}
	var hrefs []string
	for _, resp := range ms.Responses {
		if strings.HasSuffix(strings.ToLower(resp.Href), icsExtension) {
			hrefs = append(hrefs, resp.Href)
		}
	}
	return hrefs
}

// absolute resolves a discovered href against the discovery URL.
func (d *multigetDriver) absolute(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return d.baseURL.ResolveReference(ref).String()
}
