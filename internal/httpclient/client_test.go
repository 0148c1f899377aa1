package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SuccessWithRightMediaType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", rdapMediaType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"objectClassName":"domain","ldhName":"example.com"}`))
	}))
	defer srv.Close()

	policy := DefaultPolicy()
	policy.AllowHTTP = true
	c := New(policy, nil)
	res, err := c.Do(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(res.Body), "example.com")
}

func TestDo_WrongMediaTypeRejectedUnlessRelaxed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	policy := DefaultPolicy()
	policy.AllowHTTP = true
	c := New(policy, nil)
	_, err := c.Do(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongMediaType)

	relaxed := policy
	relaxed.RelaxMediaType = true
	c2 := New(relaxed, nil)
	res, err := c2.Do(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestDo_RetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", rdapMediaType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	policy := DefaultPolicy()
	policy.DefaultRetry = 10 * time.Millisecond
	policy.AllowHTTP = true
	c := New(policy, nil)
	res, err := c.Do(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	policy := Policy{MaxRetries: 1, MaxRetrySecs: time.Second, DefaultRetry: 5 * time.Millisecond, AllowHTTP: true}
	c := New(policy, nil)
	_, err := c.Do(context.Background(), srv.URL)
	require.Error(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls), "one initial attempt plus one retry")
}

func TestDo_429HonorsRetryAfter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", rdapMediaType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	policy := Policy{MaxRetries: 2, MaxRetrySecs: time.Second, DefaultRetry: 5 * time.Millisecond, AllowHTTP: true}
	c := New(policy, nil)
	res, err := c.Do(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestDo_RedirectIsNotFollowedHere(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://elsewhere.example/domain/foo")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	policy := DefaultPolicy()
	policy.AllowHTTP = true
	c := New(policy, nil)
	res, err := c.Do(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "https://elsewhere.example/domain/foo", res.Header.Get("Location"))
}

func TestDo_PlaintextHTTPBlockedByDefault(t *testing.T) {
	c := New(DefaultPolicy(), nil)
	_, err := c.Do(context.Background(), "http://example.invalid/domain/foo")
	require.Error(t, err)
}

func TestDo_PlaintextHTTPAllowedWhenPolicySet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", rdapMediaType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	policy := DefaultPolicy()
	policy.AllowHTTP = true
	c := New(policy, nil)
	res, err := c.Do(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestParseRetryAfter(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "5")
	assert.Equal(t, 5*time.Second, parseRetryAfter(h))

	h2 := http.Header{}
	assert.Equal(t, time.Duration(0), parseRetryAfter(h2))
}
