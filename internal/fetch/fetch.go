// Package fetch retrieves remote playlist and guide documents. Feeds live on
// third-party hosts that are often blocked for direct access, so a Fetcher
// first tries the URL directly and then walks an ordered list of public relay
// proxies, stopping at the first success.
package fetch

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/andybalholm/brotli"
	"github.com/sirupsen/logrus"

	"github.com/steadystream/steadystream/internal/metrics"
)

const userAgent = "SteadyStream/1.0"

// DefaultProxies is the baseline relay chain, tried in order after a direct
// fetch fails. Each entry is a prefix the target URL is appended to
// (query-escaped where the relay expects it).
var DefaultProxies = []string{
	"https://corsproxy.io/?",
	"https://cors-anywhere.herokuapp.com/",
	"https://api.allorigins.win/raw?url=",
}

// maxBodyBytes caps a single feed document. Guides for large lineups run tens
// of MB; anything past this is treated as a broken or hostile feed.
const maxBodyBytes = 256 << 20

// StatusError reports a non-2xx response from the origin or every relay.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return "fetch " + e.URL + ": unexpected status " + strconv.Itoa(e.StatusCode)
}

// Fetcher retrieves documents with relay fallback. Zero value is usable; nil
// Client falls back to the shared tuned client, nil Log discards.
type Fetcher struct {
	Client  *http.Client
	Proxies []string // relay prefixes; nil = DefaultProxies, empty non-nil = direct only
	Log     *logrus.Logger
}

// Fetch GETs rawURL, trying direct first and then each relay in order. It
// returns the whole decoded body. The last error wins when everything fails.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if !isHTTPOrHTTPS(rawURL) {
		return nil, fmt.Errorf("fetch %s: unsupported URL scheme", rawURL)
	}
	proxies := f.Proxies
	if proxies == nil {
		proxies = DefaultProxies
	}

	body, err := f.fetchOnce(ctx, rawURL)
	if err == nil {
		return body, nil
	}
	lastErr := err
	for _, proxy := range proxies {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		proxied := proxy + url.QueryEscape(rawURL)
		f.logf("direct fetch failed, trying relay", logrus.Fields{"relay": proxy, "err": lastErr.Error()})
		body, err = f.fetchOnce(ctx, proxied)
		if err == nil {
			metrics.RelayAttempts.WithLabelValues(relayHost(proxy), "ok").Inc()
			return body, nil
		}
		metrics.RelayAttempts.WithLabelValues(relayHost(proxy), "error").Inc()
		lastErr = err
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, fetchURL string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = DefaultClient()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "gzip, br")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: fetchURL, StatusCode: resp.StatusCode}
	}
	body, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", fetchURL, err)
	}
	return body, nil
}

// decodeBody handles Content-Encoding set by feeds that compress regardless of
// what the transport negotiated (gzip via stdlib, br via brotli).
func decodeBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	case "br":
		r = brotli.NewReader(resp.Body)
	}
	return io.ReadAll(io.LimitReader(r, maxBodyBytes))
}

// isHTTPOrHTTPS rejects file://, ftp:// and other schemes that could lead to
// SSRF or local file access when the URL is user-supplied.
func isHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

// relayHost keeps the metric label cardinality down to the relay's host.
func relayHost(prefix string) string {
	parsed, err := url.Parse(prefix)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	return parsed.Host
}

func (f *Fetcher) logf(msg string, fields logrus.Fields) {
	if f.Log == nil {
		return
	}
	f.Log.WithFields(fields).Debug(msg)
}
