package httpclient

import (
	"bytes"
	"context"
	"net/http"
)

// DoPROPFIND performs a PROPFIND request bounded by the metadata timeout.
func (c *httpClientWrapper) DoPROPFIND(ctx context.Context, urlStr string, depth int, body []byte) ([]byte, error) {
	c.logger.Debug("starting PROPFIND request",
		"url", urlStr,
		"depth", depth)
	return c.do(ctx, "PROPFIND", urlStr, depth, body, c.timeouts.Metadata)
}

func newRequest(ctx context.Context, method, urlStr string, body []byte) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, method, urlStr, bytes.NewReader(body))
}
