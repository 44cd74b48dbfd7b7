package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"sessionscout-backend/internal/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{
		Retries:   3,
		BaseDelay: time.Millisecond,
		MaxDelay:  time.Millisecond * 4,
		Factor:    2,
	}
}

func TestRetriesTransientStatus(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(resty.New(), testPolicy(), telemetry.SlogAPI{})

	body, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, "ok", body)
	require.Equal(t, int32(3), hits.Load())
}

func TestNonRetriableStatusFailsImmediately(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(resty.New(), testPolicy(), telemetry.SlogAPI{})

	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	var statusErr StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.Code)
	require.Equal(t, int32(1), hits.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(resty.New(), testPolicy(), telemetry.SlogAPI{})

	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	var statusErr StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	// initial attempt plus three retries
	require.Equal(t, int32(4), hits.Load())
}

func TestCancelDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	policy := testPolicy()
	policy.BaseDelay = time.Second * 10
	policy.MaxDelay = time.Second * 10
	client := NewClient(resty.New(), policy, telemetry.SlogAPI{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(time.Millisecond * 50)
		cancel()
	}()

	start := time.Now()
	_, err := client.Get(ctx, server.URL)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"Fixed":true,"StandingsData":[]}`))
	}))
	defer server.Close()

	client := NewClient(resty.New(), testPolicy(), telemetry.SlogAPI{})

	var out struct {
		Fixed         bool
		StandingsData []any
	}
	err := client.GetJSON(context.Background(), server.URL, &out)
	require.NoError(t, err)
	require.True(t, out.Fixed)
}
