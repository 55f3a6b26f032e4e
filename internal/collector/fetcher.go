package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"MinerviniScreener/internal/model"
)

// Fetcher defines the interface for fetching daily price history.
type Fetcher interface {
	FetchHistory(ctx context.Context, symbol string, days int) ([]model.PriceBar, error)
	Name() string
}

// HTTPClient allows injecting a custom client in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// statusError maps an HTTP status to a provider failure kind.
func statusError(source, symbol string, status int, body []byte) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", source, symbol, model.ErrNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s %s: %w", source, symbol, model.ErrRateLimited)
	default:
		return fmt.Errorf("%s %s: status %d, body: %s: %w", source, symbol, status, truncate(body, 200), model.ErrProviderFailure)
	}
}

// transportError classifies a failed request. Deadline expiry becomes ErrTimeout.
func transportError(ctx context.Context, source, symbol string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %v: %w", source, symbol, err, model.ErrTimeout)
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%s %s: %v: %w", source, symbol, err, model.ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%s %s: %v: %w", source, symbol, err, model.ErrProviderFailure)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
