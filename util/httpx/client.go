package httpx

import (
	"fmt"
	"net/http"
	"time"

	"github.com/henvic/httpretty"
)

// DefaultTransport is the http.RoundTripper every Client builds on top of,
// mirroring the teacher's util/httpx.DefaultTransport (a bare *http.Transport,
// no proxy/resolver tuning — this module's only HTTP traffic is the optional
// debug-dump upload path, not bulk remote-artifact fetching).
var DefaultTransport http.RoundTripper = &http.Transport{}

// Client returns an *http.Client for posting debug dumps to an internal
// dashboard (SPEC_FULL.md §2's "optional remote artifact upload path").
// When debug is set, requests and responses are logged via httpretty the
// same way the teacher wires it into its own --debug flag.
func Client(debug bool) *http.Client {
	rt := DefaultTransport
	if debug {
		logger := &httpretty.Logger{
			Time:            true,
			TLS:             true,
			RequestHeader:   true,
			RequestBody:     true,
			MaxRequestBody:  1024,
			ResponseHeader:  true,
			ResponseBody:    true,
			MaxResponseBody: 1024,
			Formatters:      []httpretty.Formatter{&JSONFormatter{}},
		}
		rt = logger.RoundTripper(rt)
	}

	return &http.Client{
		Transport: rt,
		Timeout:   30 * time.Second,
	}
}

// Close closes the http response body without error, a defer-friendly
// no-panic helper (teacher's util/httpx.Close).
func Close(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}

// Do executes req with cli and runs respFunc against the response, always
// closing the body afterwards (teacher's util/httpx.Do).
func Do(cli *http.Client, req *http.Request, respFunc func(*http.Response) error) error {
	resp, err := cli.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer Close(resp)
	if respFunc == nil {
		return nil
	}
	return respFunc(resp)
}
