package davclient

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryDriverFetchEvents(t *testing.T) {
	srv := newFakeDAV(t)
	srv.on("REPORT", "/events/alice/work/", http.StatusMultiStatus, multistatus(
		eventResponse("/events/alice/work/1.ics", "\n  "+vevent("uid-1", "Team Sync")+"\n"),
		eventResponse("/events/alice/work/2.ics", vevent("uid-2", "Review")),
		memberResponse("/events/alice/work/3.ics"),
	))
	diag := &recordingDiagnostics{}
	d := newTestDriver(t, srv, KindDingTalk, diag)

	events := d.FetchEvents(context.Background(), Collection{DisplayName: "Work", Identifier: "work"})
	require.Len(t, events, 2)
	assert.True(t, len(events[0]) > 0 && events[0][0] == 'B', "event should be trimmed")
	assert.Contains(t, string(events[0]), "SUMMARY:Team Sync")
	assert.Contains(t, string(events[1]), "SUMMARY:Review")

	reports := srv.recorded("REPORT")
	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, "1", r.Depth)
	assert.Equal(t, "alice", r.Username)
	assert.Contains(t, r.Body, "calendar-query")
	assert.Contains(t, r.Body, `name="VCALENDAR"`)
	assert.Contains(t, r.Body, `name="VEVENT"`)
	// 90 days either side of 2024-03-15T12:00:00Z
	assert.Contains(t, r.Body, `start="20231216T120000Z"`)
	assert.Contains(t, r.Body, `end="20240613T120000Z"`)

	assert.Equal(t, []string{"events_work"}, diag.operations())
}

func TestQueryDriverDefaultEventsBase(t *testing.T) {
	d, err := NewDriver(Account{
		Kind:        KindDingTalk,
		Name:        "work",
		Username:    "alice",
		Password:    "secret",
		URLTemplate: "https://calendar.dingtalk.com/dav/{username}/",
	}, Options{Logger: discardLogger()})
	require.NoError(t, err)

	qd, ok := d.(*queryDriver)
	require.True(t, ok)
	assert.Equal(t, "https://calendar.dingtalk.com/dav/alice/primary/", qd.eventsURL(Collection{Identifier: "primary"}))
}

func TestQueryDriverFetchFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom"},
		{name: "empty multistatus", status: http.StatusMultiStatus, body: multistatus()},
		{name: "malformed", status: http.StatusMultiStatus, body: "not xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeDAV(t)
			srv.on("REPORT", "/events/alice/work/", tt.status, tt.body)
			d := newTestDriver(t, srv, KindDingTalk, nil)

			assert.Empty(t, d.FetchEvents(context.Background(), Collection{DisplayName: "Work", Identifier: "work"}))
		})
	}
}

func TestSyncQueryDriverEndToEnd(t *testing.T) {
	srv := newFakeDAV(t)
	srv.on("PROPFIND", "/dav/alice/", http.StatusMultiStatus, multistatus(
		calendarResponse("/dav/alice/work/", "Work"),
		calendarResponse("/dav/alice/empty/", "Empty"),
	))
	srv.on("REPORT", "/events/alice/work/", http.StatusMultiStatus, multistatus(
		eventResponse("/events/alice/work/1.ics", vevent("uid-1", "Team Sync")),
		eventResponse("/events/alice/work/2.ics", vevent("uid-2", "Review")),
	))
	srv.on("REPORT", "/events/alice/empty/", http.StatusMultiStatus, multistatus())

	sink := &recordingSink{}
	d := newTestDriver(t, srv, KindDingTalk, nil)

	n, err := Sync(context.Background(), d, sink, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, sink.saved, 2)
	assert.Equal(t, 1, sink.saved[0].Index)
	assert.Equal(t, 2, sink.saved[1].Index)
	assert.Equal(t, "work", sink.saved[0].Collection.Identifier)
	assert.Equal(t, "Team Sync", sink.saved[0].Fields.Summary.OrEmpty())
	assert.Equal(t, "20240301T090000Z", sink.saved[0].Fields.DTStart.OrEmpty())
	assert.Equal(t, "alice", sink.saved[0].Account.Username)
}
