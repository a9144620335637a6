package httpclient

import "context"

// DoREPORT executes a CalDAV REPORT request bounded by the bulk timeout.
func (c *httpClientWrapper) DoREPORT(ctx context.Context, urlStr string, depth int, body []byte) ([]byte, error) {
	c.logger.Debug("starting REPORT request",
		"url", urlStr,
		"depth", depth,
		"body_bytes", len(body))
	return c.do(ctx, "REPORT", urlStr, depth, body, c.timeouts.Bulk)
}
