package httpretry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fast(max int) *RetryClient {
	return NewRetryClient(nil, max, WithBackoff(time.Millisecond, 2*time.Millisecond, time.Millisecond))
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "payload", string(body))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader("payload"))
	require.NoError(t, err)
	resp, err := fast(3).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDo_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := fast(3).Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_LastAttemptReturnsResponse(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := fast(2).Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

type failingDoer struct{ calls int }

func (f *failingDoer) Do(*http.Request) (*http.Response, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func TestDo_NetworkErrorExhausts(t *testing.T) {
	d := &failingDoer{}
	rc := NewRetryClient(d, 2, WithBackoff(time.Millisecond, time.Millisecond, time.Millisecond))
	req, _ := http.NewRequest(http.MethodGet, "http://ocr.invalid/", nil)

	_, err := rc.Do(req)
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 3, d.calls)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://ocr.invalid/", nil)

	d := &failingDoer{}
	_, err := NewRetryClient(d, 3).Do(req)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, d.calls)
}

func TestRetryable(t *testing.T) {
	for _, s := range []int{429, 500, 502, 503, 504} {
		assert.True(t, Retryable(s), s)
	}
	for _, s := range []int{200, 400, 401, 403, 404, 501} {
		assert.False(t, Retryable(s), s)
	}
}
