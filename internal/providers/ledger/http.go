package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/GriffinCanCode/fsplane/internal/infrastructure/resilience"
)

// HTTPOptions configures an HTTPLedger
type HTTPOptions struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// HTTPLedger posts glyphs to a remote ledger service
type HTTPLedger struct {
	base    string
	client  *resty.Client
	breaker *resilience.Breaker
}

// NewHTTP builds an HTTP ledger client
func NewHTTP(opts HTTPOptions) *HTTPLedger {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.MinWait <= 0 {
		opts.MinWait = 200 * time.Millisecond
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 5 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.MaxRetries
	retryClient.RetryWaitMin = opts.MinWait
	retryClient.RetryWaitMax = opts.MaxWait
	retryClient.Logger = nil

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "fsplane-ledger/1.0")

	breaker := resilience.New("ledger-http", resilience.Settings{
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &HTTPLedger{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		client:  client,
		breaker: breaker,
	}
}

// SaveGlyph posts g to {base}/glyphs
func (l *HTTPLedger) SaveGlyph(ctx context.Context, g Glyph) error {
	body, err := sonic.Marshal(g)
	if err != nil {
		return fmt.Errorf("ledger.HTTPLedger: marshal: %w", err)
	}

	return l.breaker.Execute(func() error {
		resp, err := l.client.R().
			SetContext(ctx).
			SetBody(body).
			Post(l.base + "/glyphs")
		if err != nil {
			return fmt.Errorf("ledger.HTTPLedger: post: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("ledger.HTTPLedger: unexpected status %d", resp.StatusCode())
		}
		return nil
	})
}

// BreakerState reports the circuit state of the remote ledger
func (l *HTTPLedger) BreakerState() resilience.State {
	return l.breaker.State()
}
