// Package source fetches dataset files from local paths or HTTP(S) URLs and
// decodes them into attribute rows and geometry entities.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/sony/gobreaker"
)

var (
	// ErrUnsupportedScheme is returned for URIs that are neither paths, file:// nor http(s)://.
	ErrUnsupportedScheme = errors.New("unsupported source scheme")
	// ErrBodyTooLarge is returned when a response exceeds the configured body limit.
	ErrBodyTooLarge = errors.New("source body too large")

	errRetryable   = errors.New("retryable status")
	errUnexpected  = errors.New("unexpected status code")
	errCircuitOpen = errors.New("circuit breaker open")
)

// defaultMaxBodyBytes caps a single dataset download when Options leaves it unset.
const defaultMaxBodyBytes = 64 << 20

// Options configures a Fetcher.
type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxBodyBytes   int64
}

// DefaultOptions returns the retry policy used by the service.
func DefaultOptions() Options {
	return Options{
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		MaxBodyBytes:   defaultMaxBodyBytes,
	}
}

// Fetcher reads dataset bytes. HTTP requests share one circuit breaker and
// are retried with exponential backoff on transport errors, 429 and 5xx.
type Fetcher struct {
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
	opts       Options
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher with its own HTTP client and breaker.
func NewFetcher(opts Options, logger *slog.Logger) *Fetcher {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: opts.Timeout},
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "dataset-source",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		opts:   opts,
		logger: logger,
	}
}

// Fetch returns the full content behind uri.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return f.fetchHTTP(ctx, uri)
	case strings.HasPrefix(uri, "file://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("parse source uri: %w", err)
		}
		return readFile(u.Path)
	case strings.Contains(uri, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, uri)
	default:
		return readFile(uri)
	}
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	return data, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, uri string) ([]byte, error) {
	backoff := f.opts.InitialBackoff
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := f.circuit.Execute(func() (interface{}, error) {
			return f.get(ctx, uri)
		})
		if err == nil {
			body, ok := result.([]byte)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return body, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if !isRetryable(err) || attempt >= f.opts.MaxRetries {
			return nil, err
		}

		f.logger.Warn("source fetch failed, retrying",
			"uri", redact(uri),
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, f.opts.MaxBackoff)
	}
}

func (f *Fetcher) get(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: %d", errRetryable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
	}

	limit := f.opts.MaxBodyBytes
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return body, nil
}

// isRetryable reports whether a failed attempt may succeed on retry. Non-2xx
// statuses other than 429/5xx and oversized bodies are permanent.
func isRetryable(err error) bool {
	return !errors.Is(err, errUnexpected) &&
		!errors.Is(err, ErrBodyTooLarge) &&
		!errors.Is(err, context.Canceled)
}

// redact strips the query string so tokens never reach the logs.
func redact(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "<invalid uri>"
	}
	u.RawQuery = ""
	return u.String()
}
