package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/metrics"
	"github.com/dgnsrekt/charsync/internal/throttle"
)

// Doer performs single-attempt upstream calls for one upstream. Every call
// takes a throttle permit, passes through the circuit breaker and has its
// failure classified into the package's error taxonomy. Retrying is left to
// the caller.
type Doer struct {
	name       string
	httpClient *http.Client
	throttle   *throttle.Throttle
	breaker    *Breaker
	logger     *zap.Logger
}

func NewDoer(name string, timeout time.Duration, th *throttle.Throttle, breaker *Breaker, logger *zap.Logger) *Doer {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Doer{
		name: name,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		throttle: th,
		breaker:  breaker,
		logger:   logger,
	}
}

// Name returns the upstream name.
func (d *Doer) Name() string {
	return d.name
}

// GetJSON issues a GET and decodes a 200 response into out.
func (d *Doer) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	return d.Do(ctx, req, out)
}

// Do sends req and decodes a 200 response body into out. A nil out discards
// the body.
func (d *Doer) Do(ctx context.Context, req *http.Request, out any) error {
	if d.throttle != nil {
		if err := d.throttle.Acquire(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	err := d.breaker.Execute(func() error {
		return d.roundTrip(ctx, req, out)
	})
	metrics.UpstreamRequestDuration.WithLabelValues(d.name).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequests.WithLabelValues(d.name, resultLabel(err)).Inc()

	if err != nil {
		d.logger.Debug("upstream call failed",
			zap.String("upstream", d.name),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
	}
	return err
}

func (d *Doer) roundTrip(ctx context.Context, req *http.Request, out any) error {
	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("%w: reading body: %v", ErrTransient, readErr)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: server error %d", ErrTransient, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, truncate(body, 200))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding: %v", ErrMalformedResponse, err)
	}
	return nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsNotFound(err):
		return "not_found"
	case isErr(err, ErrRateLimited):
		return "rate_limited"
	case isErr(err, throttle.ErrBackpressure):
		return "backpressure"
	case isErr(err, ErrTransient):
		return "transient"
	case isErr(err, ErrMalformedResponse):
		return "malformed"
	case isErr(err, ErrAuthFailed):
		return "auth"
	default:
		return "error"
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
