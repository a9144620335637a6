package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multistatus = `<?xml version="1.0" encoding="UTF-8"?>
<D:multistatus xmlns:D="DAV:"><D:response><D:href>/c/</D:href></D:response></D:multistatus>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newWrapper(t *testing.T, server *httptest.Server, timeouts Timeouts) HttpClientWrapper {
	t.Helper()
	base, err := url.Parse(server.URL)
	require.NoError(t, err)
	client := NewClient(server.Client(), "alice", "secret", discardLogger())
	w, err := NewHttpClientWrapper(client, *base, timeouts, discardLogger())
	require.NoError(t, err)
	return w
}

func TestDoPROPFIND(t *testing.T) {
	tests := []struct {
		name          string
		serverHandler func(t *testing.T) http.HandlerFunc
		wantErr       bool
		wantStatus    int
	}{
		{
			name: "multistatus response",
			serverHandler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, "PROPFIND", r.Method)
					assert.Equal(t, "1", r.Header.Get("Depth"))
					assert.Equal(t, "application/xml; charset=utf-8", r.Header.Get("Content-Type"))
					user, pass, ok := r.BasicAuth()
					assert.True(t, ok)
					assert.Equal(t, "alice", user)
					assert.Equal(t, "secret", pass)
					assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
					body, _ := io.ReadAll(r.Body)
					assert.Equal(t, "<propfind/>", string(body))

					w.WriteHeader(http.StatusMultiStatus)
					w.Write([]byte(multistatus))
				}
			},
		},
		{
			name: "forbidden",
			serverHandler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusForbidden)
					w.Write([]byte(strings.Repeat("x", 500)))
				}
			},
			wantErr:    true,
			wantStatus: http.StatusForbidden,
		},
		{
			name: "plain OK is not multistatus",
			serverHandler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
				}
			},
			wantErr:    true,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.serverHandler(t))
			defer server.Close()

			w := newWrapper(t, server, DefaultTimeouts())
			got, err := w.DoPROPFIND(context.Background(), "/dav/alice/", 1, []byte("<propfind/>"))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, multistatus, string(got))
				return
			}

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.wantStatus, statusErr.StatusCode)
			assert.LessOrEqual(t, len(statusErr.Snippet), snippetSize)
			assert.Nil(t, got)
		})
	}
}

func TestDoPROPFIND_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	w := newWrapper(t, server, Timeouts{Metadata: 50 * time.Millisecond, Bulk: time.Second})
	_, err := w.DoPROPFIND(context.Background(), server.URL, 1, nil)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestDoPROPFIND_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	w := newWrapper(t, server, DefaultTimeouts())
	server.Close()

	_, err := w.DoPROPFIND(context.Background(), "/", 0, nil)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestBasicAuthTransport_EmptyCredentials(t *testing.T) {
	transport := NewBasicAuthTransport("", "secret", nil, nil)
	req := httptest.NewRequest("PROPFIND", "http://example.com/", nil)
	_, err := transport.RoundTrip(req)
	assert.EqualError(t, err, "basic auth username cannot be empty")

	transport = NewBasicAuthTransport("alice", "", nil, nil)
	_, err = transport.RoundTrip(req)
	assert.EqualError(t, err, "basic auth password cannot be empty")
}

func TestNewHttpClientWrapper_RequiresLogger(t *testing.T) {
	_, err := NewHttpClientWrapper(nil, url.URL{}, DefaultTimeouts(), nil)
	assert.Error(t, err)
}
