package runner

import (
	"context"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/abdul-hamid-achik/hitcase/packages/logging"
)

// WaitForService polls url until it answers with status or timeout passes.
func WaitForService(ctx context.Context, url string, status int, timeout, interval time.Duration) error {
	if url == "" {
		return nil
	}
	if interval <= 0 {
		interval = time.Second
	}

	logging.Info("runner", "waiting for %s to return %d (timeout: %v, interval: %v)", url, status, timeout, interval)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &nethttp.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	var lastStatus int
	for {
		req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("wait for %s: %w", url, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() == nil {
				lastErr = err
			}
		} else {
			lastErr = nil
			lastStatus = resp.StatusCode
			_ = resp.Body.Close()
			if resp.StatusCode == status {
				logging.Info("runner", "service %s is ready (status: %d)", url, resp.StatusCode)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("service %s not ready after %v: %w", url, timeout, lastErr)
			}
			return fmt.Errorf("service %s not ready after %v: got status %d, expected %d",
				url, timeout, lastStatus, status)
		case <-ticker.C:
		}
	}
}
