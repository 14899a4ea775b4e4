// Package upstream is the client of the Policy Management Service
// and the Transaction Event Service.
//
// Every call takes context.Context; cancelling it aborts the request in flight.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	kcf "github.com/glasswall/icap-management-ui/pkg/configs/dashboard"
	"github.com/glasswall/icap-management-ui/pkg/metrics"
	"github.com/glasswall/icap-management-ui/pkg/utils/retry"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"
)

type Option func(*caller) *caller

// WithHTTPClient sets http client used for requests. Default is http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *caller) *caller {
		if hc != nil {
			c.hc = hc
		}
		return c
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *caller) *caller {
		c.metrics = m
		return c
	}
}

func WithLogger(l echo.Logger) Option {
	return func(c *caller) *caller {
		if l != nil {
			c.logger = l
		}
		return c
	}
}

// WithUpstreamConfig applies timeout, retry and rate limit.
func WithUpstreamConfig(conf kcf.UpstreamConfig) Option {
	return func(c *caller) *caller {
		c.timeout = conf.Timeout
		c.retry = conf.Retry
		if conf.RateLimit.Unlimited() {
			c.limiter = nil
		} else {
			c.limiter = rate.NewLimiter(rate.Limit(conf.RateLimit.PerSecond), conf.RateLimit.Burst)
		}
		return c
	}
}

// caller sends requests to one upstream service.
type caller struct {
	service string
	base    *url.URL

	hc      *http.Client
	timeout time.Duration
	retry   kcf.RetryConfig
	limiter *rate.Limiter

	metrics *metrics.Metrics
	logger  echo.Logger
}

func newCaller(service string, base *url.URL, opts ...Option) *caller {
	c := &caller{
		service: service,
		base:    base,
		hc:      http.DefaultClient,
		logger:  log.New("upstream"),
	}
	for _, opt := range opts {
		c = opt(c)
	}
	return c
}

type call struct {
	operation  string
	method     string
	path       string
	query      url.Values
	body       any
	messageFor MessageFor
}

func (c *caller) endpoint(path string, query url.Values) string {
	u := c.base.JoinPath(path)
	if len(query) != 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends a request and decodes its response into out.
//
// GET requests are retried on transport errors and temporary errors.
func (c *caller) do(ctx context.Context, req call, out any) error {
	start := time.Now()
	err := c.withRetry(ctx, req, out)
	c.metrics.ObserveUpstream(c.service, req.operation, outcomeOf(ctx, err), time.Since(start))
	return err
}

func (c *caller) withRetry(ctx context.Context, req call, out any) error {
	if req.method != http.MethodGet || c.retry.Attempts <= 0 {
		return c.once(ctx, req, out)
	}

	backoff := retry.Limit(
		c.retry.Attempts,
		retry.ExponentialBackoff(c.retry.Interval, c.retry.Multiplier),
	)

	nth := 0
	var last error
	_, err := retry.Blocking(ctx, backoff, func() (struct{}, error) {
		if 0 < nth {
			c.metrics.UpstreamRetried(c.service, req.operation)
			c.logger.Warnf(
				"retrying %s %s (#%d) after error: %s", c.service, req.operation, nth, last,
			)
		}
		nth += 1

		last = c.once(ctx, req, out)
		if last != nil && ctx.Err() == nil && retryable(last) {
			return struct{}{}, retry.ErrRetry
		}
		return struct{}{}, last
	})
	if errors.Is(err, retry.ErrRetry) {
		return last
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, ErrUnreachable) {
		return true
	}
	var uerr *UpstreamError
	return errors.As(err, &uerr) && uerr.Temporary()
}

func (c *caller) once(ctx context.Context, req call, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: rate limit: %w", c.service, req.operation, err)
		}
	}

	if 0 < c.timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), body)
	if err != nil {
		return err
	}
	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(hreq)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnreachable, c.service, req.operation, err)
	}
	defer resp.Body.Close()

	return decodeJsonResponse(resp, out, c.service, req.operation, req.messageFor)
}

func outcomeOf(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case ctx.Err() != nil:
		return metrics.OutcomeCancelled
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
