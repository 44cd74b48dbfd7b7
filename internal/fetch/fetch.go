// Package fetch wraps an http client with the retry and backoff rules
// used for every page request against the contest site.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"sessionscout-backend/internal/telemetry"

	"github.com/go-resty/resty/v2"
)

const (
	report_fetch_get   = "fetch.get"
	report_fetch_retry = "fetch.retry"
)

// RetryPolicy controls backoff between attempts. The delay before
// attempt i is BaseDelay * Factor^(i-1), capped at MaxDelay, plus a
// random jitter in [0, Jitter).
type RetryPolicy struct {
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Factor    float64
	Jitter    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Retries:   3,
		BaseDelay: time.Millisecond * 800,
		MaxDelay:  time.Second * 8,
		Factor:    2,
		Jitter:    time.Millisecond * 200,
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	delay := time.Duration(float64(p.BaseDelay) * pow(p.Factor, attempt))
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return delay
}

func pow(base float64, exp int) float64 {
	out := float64(1)
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}

type StatusError struct {
	Code int
	Url  string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.Url, e.Code)
}

// transient server-side statuses worth another attempt
func retriable(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

type Client struct {
	http   *resty.Client
	policy RetryPolicy

	tel telemetry.API
}

func NewClient(http *resty.Client, policy RetryPolicy, tel telemetry.API) *Client {
	tel = telemetry.NewScopedAPI("fetch", tel)
	return &Client{
		http:   http,
		policy: policy,
		tel:    tel,
	}
}

// Get fetches a page body, retrying transient failures per the policy.
// A non-retriable status fails immediately with a StatusError. Backoff
// sleeps abort as soon as ctx is cancelled.
func (c *Client) Get(ctx context.Context, url string) (string, error) {
	res, err := c.do(ctx, url, nil)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// GetJSON fetches and decodes a JSON response body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	res, err := c.do(ctx, url, map[string]string{"accept": "application/json"})
	if err != nil {
		return err
	}
	err = json.Unmarshal(res.Body(), out)
	if err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, url string, headers map[string]string) (*resty.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.policy.Retries; attempt++ {
		if attempt > 0 {
			delay := c.policy.delay(attempt - 1)
			c.tel.ReportWarning(report_fetch_retry, fmt.Errorf(
				"attempt %d/%d for %s after %s: %w",
				attempt, c.policy.Retries, url, delay, lastErr,
			))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		req := c.http.R().SetContext(ctx)
		for k, v := range headers {
			req.SetHeader(k, v)
		}
		res, err := req.Get(url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if res.IsSuccess() {
			return res, nil
		}

		statusErr := StatusError{Code: res.StatusCode(), Url: url}
		if !retriable(res.StatusCode()) {
			c.tel.ReportBroken(report_fetch_get, statusErr)
			return nil, statusErr
		}
		lastErr = statusErr
	}

	return nil, fmt.Errorf("retries exhausted for %s: %w", url, lastErr)
}
