// Package fetcher issues catalog page requests under a global concurrency
// and pacing budget, with retry, backoff, and remote-block detection.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/lmoreira/genretag/config"
)

// Page kinds used as metric labels.
const (
	PageSearch = "search"
	PageDetail = "detail"
)

// Block-page signatures. The catalog answers throttled clients with HTTP
// 200 challenge pages, so the body has to be inspected alongside the
// status.
var blockSignatures = []string{
	"just a moment",
	"attention required",
	"captcha",
	"access to this page has been denied",
	"unusual traffic",
	"temporarily blocked",
}

// minPlausibleBody is the smallest body a real search or detail page has
// ever produced; anything shorter on a 200 is treated as a block response.
const minPlausibleBody = 512

// Fetcher retrieves catalog pages. It is safe for concurrent use; the
// collector's limit rule caps in-flight requests, the pace limiter spaces
// them out, and the block guard is the only other shared mutable state.
type Fetcher struct {
	cfg     *config.Config
	base    *colly.Collector
	pace    *rate.Limiter
	guard   *blockGuard
	Metrics *Metrics
}

// New builds a fetcher configured from cfg.
func New(cfg *config.Config) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.FetchConcurrency,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	pace := rate.NewLimiter(rate.Inf, 1)
	if cfg.MinInterval > 0 {
		pace = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}

	return &Fetcher{
		cfg:     cfg,
		base:    collector,
		pace:    pace,
		guard:   newBlockGuard(cfg.BlockThreshold, cfg.BlockCooldown),
		Metrics: NewMetrics(),
	}, nil
}

// WithTransport swaps the HTTP transport. Used by tests to install mock
// responders.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.base.WithTransport(rt)
}

// BlockEpisodes returns how many folder-wide cooldown windows this fetcher
// opened.
func (f *Fetcher) BlockEpisodes() int {
	return f.guard.Episodes()
}

// Fetch retrieves one page, retrying per policy. Block responses back off
// exponentially (capped), transient network failures back off linearly,
// and a 404 returns immediately since retrying cannot help. After the
// budget is spent the last error is wrapped in ErrExhausted.
func (f *Fetcher) Fetch(ctx context.Context, pageURL, page string) (string, error) {
	maxAttempts := f.cfg.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := f.guard.Wait(ctx); err != nil {
			return "", err
		}
		if err := f.pace.Wait(ctx); err != nil {
			return "", err
		}

		start := time.Now()
		body, status, visitErr := f.visit(pageURL)
		f.Metrics.IncRequest(page)
		f.Metrics.ObserveDuration(time.Since(start))

		classified := f.classify(body, status, visitErr)
		if classified == nil {
			f.guard.Success()
			return body, nil
		}
		f.Metrics.IncError(errorTypeLabel(classified))

		var notFound ErrNotFound
		if errors.As(classified, &notFound) {
			return "", classified
		}
		lastErr = classified

		var delay time.Duration
		var blocked ErrBlocked
		if errors.As(classified, &blocked) {
			if f.guard.Blocked() {
				f.Metrics.IncBlockPause()
			}
			delay = f.blockBackoff(attempt)
		} else {
			delay = f.cfg.RetryBackoff * time.Duration(attempt)
		}

		if attempt == maxAttempts {
			break
		}
		f.Metrics.IncRetries()
		slog.Debug("retrying fetch",
			slog.String("url", pageURL),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("cause", errorTypeLabel(classified)),
		)
		if err := sleepCtx(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", ErrExhausted{Attempts: maxAttempts, Err: lastErr}
}

// visit performs a single request through a collector clone. The clone
// shares the base collector's backend, so limit rules and the transport
// carry over while response callbacks stay scoped to this request.
func (f *Fetcher) visit(pageURL string) (string, int, error) {
	c := f.base.Clone()

	var (
		body     []byte
		status   int
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			body = r.Body
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.Visit(pageURL); err != nil {
		return "", status, err
	}
	c.Wait()
	return string(body), status, fetchErr
}

// classify maps a raw response to the error taxonomy. nil means a genuine
// content page.
func (f *Fetcher) classify(body string, status int, err error) error {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout{Err: err}
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrTimeout{Err: err}
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return ErrConnection{Err: err}
		}
	}

	switch {
	case status == http.StatusNotFound:
		return ErrNotFound{Err: fmt.Errorf("http status %d", status)}
	case status == http.StatusForbidden,
		status == http.StatusTooManyRequests,
		status == http.StatusServiceUnavailable:
		return ErrBlocked{StatusCode: status, Reason: "status"}
	case err != nil:
		return err
	case status >= http.StatusBadRequest:
		return fmt.Errorf("http status %d", status)
	}

	if reason, blocked := looksBlocked(body); blocked {
		return ErrBlocked{StatusCode: status, Reason: reason}
	}
	return nil
}

// looksBlocked inspects a success-status body for challenge-page shape.
func looksBlocked(body string) (string, bool) {
	trimmed := strings.TrimSpace(body)
	if len(trimmed) < minPlausibleBody {
		return "short_body", true
	}
	lower := strings.ToLower(trimmed)
	for _, sig := range blockSignatures {
		if strings.Contains(lower, sig) {
			return "signature", true
		}
	}
	return "", false
}

func (f *Fetcher) blockBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	base := f.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	delay := base * time.Duration(1<<(attempt-1))
	if max := f.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
