package httpclient

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// UserAgent is sent with every request.
const UserAgent = "calsync/1.0"

// BasicAuthTransport implements http.RoundTripper and adds Basic Auth
// authentication to outgoing requests.
type BasicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewBasicAuthTransport creates a new BasicAuthTransport with the given
// credentials and optional underlying transport. If transport is nil,
// http.DefaultTransport will be used.
func NewBasicAuthTransport(username, password string, transport http.RoundTripper, logger *slog.Logger) *BasicAuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BasicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: transport,
		Logger:    logger,
	}
}

// RoundTrip implements the http.RoundTripper interface. It adds Basic Auth
// credentials to a clone of the request and delegates to the underlying
// transport.
func (t *BasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Username == "" {
		return nil, errors.New("basic auth username cannot be empty")
	}
	if t.Password == "" {
		return nil, errors.New("basic auth password cannot be empty")
	}
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	authed := req.Clone(req.Context())
	authed.SetBasicAuth(t.Username, t.Password)
	if authed.Header.Get("User-Agent") == "" {
		authed.Header.Set("User-Agent", UserAgent)
	}

	t.Logger.Debug("outgoing request",
		"method", req.Method,
		"url", req.URL.String(),
		"depth", req.Header.Get("Depth"),
		"content_length", req.ContentLength)

	resp, err := t.Transport.RoundTrip(authed)
	if err == nil && resp != nil {
		t.Logger.Debug("incoming response",
			"status", resp.Status,
			"content_length", resp.ContentLength)
	}
	return resp, err
}

// NewClient returns an http.Client authenticating as username. The base
// client's transport is wrapped, or http.DefaultTransport when base is nil.
func NewClient(base *http.Client, username, password string, logger *slog.Logger) *http.Client {
	var transport http.RoundTripper
	client := &http.Client{}
	if base != nil {
		transport = base.Transport
		client.CheckRedirect = base.CheckRedirect
		client.Jar = base.Jar
		client.Timeout = base.Timeout
	}
	client.Transport = NewBasicAuthTransport(username, password, transport, logger)
	return client
}
