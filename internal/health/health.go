// Package health probes configured source URLs so operators can tell a
// broken provider apart from a broken deployment.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CheckSource GETs a source URL and reports whether it answers 200.
// Uses GET because many playlist hosts reject HEAD; the body is drained
// up to a small cap and discarded.
func CheckSource(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("no source URL configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("source unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("source returned HTTP %d", resp.StatusCode)
	}
	return nil
}
