// Package httpclient implements the HTTP request driver contract of §4.5:
// issue a request, apply retries/timeouts, decode the body, and preserve
// HTTP metadata for the caller.
package httpclient

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	rdapMediaType = "application/rdap+json"
	userAgent     = "rdaptools-rdap-client/1.0"
)

// ErrWrongMediaType is returned when a 200 response's Content-Type does not
// begin with application/rdap+json and the caller has not opted into
// relaxed mode, per §4.5.
var ErrWrongMediaType = errors.New("rdap: response content-type is not application/rdap+json")

// Policy configures retry/timeout/transport behavior, per §4.5 and §6.
type Policy struct {
	MaxRetries     int
	MaxRetrySecs   time.Duration
	DefaultRetry   time.Duration
	AllowHTTP      bool
	RelaxMediaType bool
}

// DefaultPolicy matches the environment defaults of §6
// (RDAP_MAX_RETRIES, RDAP_MAX_RETRY_SECS, RDAP_DEF_RETRY_SECS).
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   2,
		MaxRetrySecs: 60 * time.Second,
		DefaultRetry: 5 * time.Second,
	}
}

// Result is what a successful Do call returns: status, headers, and the
// decoded body, per §4.5's contract.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client wraps net/http.Client with the RDAP retry/media-type contract.
type Client struct {
	HTTP   *http.Client
	Policy Policy
	Cache  *Cache // optional; nil disables response caching
}

// New builds a Client. A nil cache disables caching (RDAP_NO_CACHE).
func New(policy Policy, cache *Cache) *Client {
	return &Client{
		// redirects are returned to the caller rather than followed; see
		// attempt.
		HTTP: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}},
		Policy: policy,
		Cache:  cache,
	}
}

// Do issues GET url with a deadline, retrying on 429 (honoring Retry-After
// up to MaxRetrySecs) and idempotent 5xx, per §4.5 and §6.
func (c *Client) Do(ctx context.Context, url string) (Result, error) {
	fetch := func() (Result, error) { return c.doWithRetries(ctx, url) }
	if c.Cache != nil {
		return c.Cache.GetOrPopulate(url, fetch)
	}
	return fetch()
}

func (c *Client) doWithRetries(ctx context.Context, url string) (Result, error) {
	var lastErr error
	budget := c.Policy.MaxRetrySecs
	for attempt := 0; attempt <= c.Policy.MaxRetries; attempt++ {
		res, retryAfter, err := c.attempt(ctx, url)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == c.Policy.MaxRetries {
			break
		}

		wait := c.Policy.DefaultRetry
		if retryAfter > 0 {
			wait = retryAfter
		}
		if wait > budget {
			break
		}
		budget -= wait

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(wait):
		}
	}
	return Result{}, lastErr
}

// retryableError tags an error as eligible for the driver's retry loop.
type retryableError struct{ error }

func isRetryable(err error) bool {
	_, ok := err.(retryableError)
	return ok
}

func (c *Client) attempt(ctx context.Context, url string) (Result, time.Duration, error) {
	if !c.Policy.AllowHTTP && strings.HasPrefix(url, "http://") {
		return Result{}, 0, errors.New("rdap: plaintext http not allowed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, 0, err
	}
	req.Header.Set("Accept", rdapMediaType+", application/json;q=0.9")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Result{}, 0, retryableError{errors.WithMessage(err, "rdap: transport error")}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, 0, retryableError{errors.WithMessage(err, "rdap: read body")}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, parseRetryAfter(resp.Header), retryableError{errors.New("rdap: 429 too many requests")}
	case resp.StatusCode >= 500:
		return Result{}, 0, retryableError{errors.Errorf("rdap: server error %d", resp.StatusCode)}
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		// redirects are surfaced to the caller (the resolver), not
		// followed here: C4 owns hop-count and same-kind enforcement.
		return Result{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, 0, nil
	case resp.StatusCode != http.StatusOK:
		return Result{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, 0, nil
	}

	if !c.Policy.RelaxMediaType {
		ct := resp.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, rdapMediaType) {
			return Result{}, 0, errors.WithMessage(ErrWrongMediaType, ct)
		}
	}

	return Result{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, 0, nil
}

func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}
