package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string, maxRetries int) *HTTPClient {
	t.Helper()
	client, err := NewHTTPClient(Config{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Model:      "test-model",
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
	}, nil)
	require.NoError(t, err)
	// Shrink backoff so retry tests stay fast.
	client.retry.baseDelay = time.Millisecond
	client.retry.maxDelay = 2 * time.Millisecond
	return client
}

func TestHTTPClientComplete(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Technology"}}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 1)
	text, err := client.Complete(context.Background(), "classify this")
	require.NoError(t, err)
	require.Equal(t, "Technology", text)
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 3)
	text, err := client.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "ok", text)
	require.Equal(t, int32(3), calls.Load())
}

func TestHTTPClientDoesNotRetryBadRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad prompt"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 3)
	_, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "400")
	require.Equal(t, int32(1), calls.Load())
}

func TestHTTPClientEmptyChoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 1)
	_, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no choices")
}

func TestNewHTTPClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewHTTPClient(Config{APIKey: "k", Model: "m"}, nil)
	require.Error(t, err)
	_, err = NewHTTPClient(Config{BaseURL: "http://x", Model: "m"}, nil)
	require.Error(t, err)
	_, err = NewHTTPClient(Config{BaseURL: "http://x", APIKey: "k"}, nil)
	require.Error(t, err)
}
