package davclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/calsync/internal/httpclient"
	davxml "github.com/cyp0633/calsync/internal/xml"
)

// davDriver holds what the wire-level vendor strategies share: the
// authenticated wrapper, discovery and the diagnostics hook.
type davDriver struct {
	account       Account
	opts          Options
	baseURL       *url.URL
	http          httpclient.HttpClientWrapper
	logger        *slog.Logger
	discoverProps []davxml.Name
}

func newDAVDriver(acc Account, opts Options, discoverProps []davxml.Name) (*davDriver, error) {
	location := acc.URL()
	baseURL, err := url.Parse(location)
	if err != nil || baseURL.Host == "" || (baseURL.Scheme != "http" && baseURL.Scheme != "https") {
		return nil, fmt.Errorf("invalid discovery URL %q for account %q", location, acc.Name)
	}

	logger := opts.Logger.With("vendor", acc.Kind.Vendor(), "account", acc.Name)
	client := httpclient.NewClient(opts.HTTPClient, acc.Username, acc.Password, logger)
	wrapper, err := httpclient.NewHttpClientWrapper(client, *baseURL, httpclient.Timeouts{
		Metadata: opts.MetadataTimeout,
		Bulk:     opts.BulkTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client wrapper: %w", err)
	}

	return &davDriver{
		account:       acc,
		opts:          opts,
		baseURL:       baseURL,
		http:          wrapper,
		logger:        logger,
		discoverProps: discoverProps,
	}, nil
}

func (d *davDriver) Account() Account {
	return d.account
}

// discover lists the calendar collections under the account URL. Entries
// without the CalDAV calendar marker are skipped.
func (d *davDriver) discover(ctx context.Context) []davxml.Response {
	location := d.baseURL.String()
	d.logger.Info("discovering calendar collections", "url", location)

	req := &davxml.PropfindRequest{Prop: d.discoverProps}
	ms, ok := d.propfind(ctx, location, req.ToXML(), "collections")
	if !ok {
		return nil
	}

	var calendars []davxml.Response
	for _, resp := range ms.Responses {
		if resp.Href == "" || !resp.IsCalendar() {
			continue
		}
		calendars = append(calendars, resp)
	}
	d.logger.Info("discovery complete", "responses", len(ms.Responses), "calendars", len(calendars))
	return calendars
}

func (d *davDriver) propfind(ctx context.Context, location string, doc *etree.Document, operation string) (*davxml.Multistatus, bool) {
	body, err := davxml.Encode(doc)
	if err != nil {
		d.logFailure("PROPFIND", location, err)
		return nil, false
	}
	data, err := d.http.DoPROPFIND(ctx, location, 1, body)
	if err != nil {
		d.logFailure("PROPFIND", location, err)
		return nil, false
	}
	return d.parse("PROPFIND", location, operation, data)
}

func (d *davDriver) report(ctx context.Context, location string, doc *etree.Document, operation string) (*davxml.Multistatus, bool) {
	body, err := davxml.Encode(doc)
	if err != nil {
		d.logFailure("REPORT", location, err)
		return nil, false
	}
	data, err := d.http.DoREPORT(ctx, location, 1, body)
	if err != nil {
		d.logFailure("REPORT", location, err)
		return nil, false
	}
	return d.parse("REPORT", location, operation, data)
}

func (d *davDriver) parse(method, location, operation string, data []byte) (*davxml.Multistatus, bool) {
	if d.opts.Diagnostics != nil {
		d.opts.Diagnostics.SaveResponse(d.account.Kind.Vendor(), operation, d.account.Username, data)
	}
	ms, err := davxml.ParseMultistatus(data)
	if err != nil {
		d.logFailure(method, location, err)
		return nil, false
	}
	return ms, true
}

func (d *davDriver) logFailure(method, location string, err error) {
	var statusErr *httpclient.StatusError
	switch {
	case errors.As(err, &statusErr):
		d.logger.Warn("unexpected DAV status",
			"method", method,
			"url", location,
			"status", statusErr.StatusCode,
			"body", statusErr.Snippet)
	case errors.Is(err, httpclient.ErrTransport):
		d.logger.Warn("DAV request failed", "method", method, "url", location, "error", err)
	case errors.Is(err, davxml.ErrMalformedResponse):
		d.logger.Warn("could not parse DAV response", "method", method, "url", location, "error", err)
	default:
		d.logger.Error("DAV call failed", "method", method, "url", location, "error", err)
	}
}

// eventsFrom collects the calendar-data payloads of a REPORT response.
func eventsFrom(ms *davxml.Multistatus) []RawEvent {
	var events []RawEvent
	for _, resp := range ms.Responses {
		if data, ok := resp.CalendarData.Get(); ok {
			events = append(events, RawEvent(strings.TrimSpace(data)))
		}
	}
	return events
}

func displayName(resp davxml.Response) string {
	return resp.DisplayName.OrElse(UnknownCalendar)
}

// lastSegment returns the final path segment of an href.
func lastSegment(href string) string {
	trimmed := strings.Trim(href, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
