package davclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cyp0633/calsync/internal/ics"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedRequest struct {
	Method   string
	Path     string
	Depth    string
	Body     string
	Username string
	Password string
}

type fakeReply struct {
	status int
	body   string
}

// fakeDAV is an httptest server answering canned multistatus bodies keyed by
// "METHOD path". Unknown routes answer 404.
type fakeDAV struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]fakeReply
	requests []recordedRequest
}

func newFakeDAV(t *testing.T) *fakeDAV {
	t.Helper()
	f := &fakeDAV{routes: make(map[string]fakeReply)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeDAV) on(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = fakeReply{status: status, body: body}
}

func (f *fakeDAV) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	user, pass, _ := r.BasicAuth()

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		Depth:    r.Header.Get("Depth"),
		Body:     string(body),
		Username: user,
		Password: pass,
	})
	reply, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(reply.status)
	_, _ = io.WriteString(w, reply.body)
}

func (f *fakeDAV) recorded(method string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.requests {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

func multistatus(responses ...string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">` +
		strings.Join(responses, "") +
		`</d:multistatus>`
}

func calendarResponse(href, name string) string {
	return `<d:response><d:href>` + href + `</d:href><d:propstat><d:prop>
<d:displayname>` + name + `</d:displayname>
<d:resourcetype><d:collection/><c:calendar/></d:resourcetype>
</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>`
}

func unnamedCalendarResponse(href string) string {
	return `<d:response><d:href>` + href + `</d:href>
<d:propstat><d:prop><d:resourcetype><d:collection/><c:calendar/></d:resourcetype></d:prop>
<d:status>HTTP/1.1 200 OK</d:status></d:propstat>
<d:propstat><d:prop><d:displayname/></d:prop><d:status>HTTP/1.1 404 Not Found</d:status></d:propstat>
</d:response>`
}

func plainCollectionResponse(href string) string {
	return `<d:response><d:href>` + href + `</d:href><d:propstat><d:prop>
<d:resourcetype><d:collection/></d:resourcetype>
</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>`
}

func memberResponse(href string) string {
	return `<d:response><d:href>` + href + `</d:href><d:propstat><d:prop>
<d:getetag>"etag-1"</d:getetag><d:resourcetype/>
</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>`
}

func eventResponse(href, data string) string {
	return `<d:response><d:href>` + href + `</d:href><d:propstat><d:prop>
<d:getetag>"etag-1"</d:getetag>
<c:calendar-data><![CDATA[` + data + `]]></c:calendar-data>
</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>`
}

func vevent(uid, summary string) string {
	return "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//Test//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:" + uid + "\r\nDTSTAMP:20240301T090000Z\r\n" +
		"DTSTART:20240301T090000Z\r\nDTEND:20240301T100000Z\r\nSUMMARY:" + summary + "\r\n" +
		"END:VEVENT\r\nEND:VCALENDAR"
}

type savedEvent struct {
	Account    Account
	Collection Collection
	Index      int
	Event      RawEvent
	Fields     ics.Fields
}

type recordingSink struct {
	mu    sync.Mutex
	saved []savedEvent
	fail  bool
}

func (s *recordingSink) SaveEvent(acc Account, c Collection, index int, ev RawEvent, fields ics.Fields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, savedEvent{Account: acc, Collection: c, Index: index, Event: ev, Fields: fields})
	if s.fail {
		return "", errors.New("disk full")
	}
	return c.Identifier + "/event.ics", nil
}

type savedResponse struct {
	Vendor    string
	Operation string
	Username  string
	Body      string
}

type recordingDiagnostics struct {
	mu    sync.Mutex
	saved []savedResponse
}

func (d *recordingDiagnostics) SaveResponse(vendor, operation, username string, body []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saved = append(d.saved, savedResponse{Vendor: vendor, Operation: operation, Username: username, Body: string(body)})
}

func (d *recordingDiagnostics) operations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ops []string
	for _, s := range d.saved {
		ops = append(ops, s.Operation)
	}
	return ops
}

// stubDriver serves fixed collections and events without any network.
type stubDriver struct {
	account     Account
	collections []Collection
	events      map[string][]RawEvent
}

func (s *stubDriver) Account() Account {
	return s.account
}

func (s *stubDriver) DiscoverCollections(_ context.Context) []Collection {
	return s.collections
}

func (s *stubDriver) FetchEvents(_ context.Context, c Collection) []RawEvent {
	return s.events[c.Identifier]
}
