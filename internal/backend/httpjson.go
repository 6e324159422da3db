package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ppiankov/refcheck/internal/domain"
)

// getJSON issues a GET request with the given timeout and decodes a
// JSON body into out. A 429 response is surfaced as a
// domain.RateLimitedError; any other non-2xx status as a
// domain.TransportError.
func getJSON(ctx context.Context, client *http.Client, backendName, rawURL, userAgent string, timeout time.Duration, out interface{}) error {
	return getJSONAccept(ctx, client, backendName, rawURL, userAgent, "application/json", timeout, out)
}

// getJSONAccept is getJSON with an explicit Accept header, for
// backends whose API is content-negotiated (e.g. doi.org's CSL-JSON).
func getJSONAccept(ctx context.Context, client *http.Client, backendName, rawURL, userAgent, accept string, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &domain.TransportError{Backend: backendName, Err: fmt.Errorf("build request: %w", err)}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &domain.TimeoutError{Backend: backendName}
		}
		return &domain.TransportError{Backend: backendName, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &domain.RateLimitedError{Backend: backendName, RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.TransportError{Backend: backendName, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.TransportError{Backend: backendName, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// decodeJSONBody decodes an already-received response body, for
// backends that build their own request (custom headers, query
// params) and only want getJSON's decode step.
func decodeJSONBody(resp *http.Response, out interface{}) error {
	return json.NewDecoder(resp.Body).Decode(out)
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := time.ParseDuration(v + "s"); err == nil {
		return secs
	}
	return 0
}
