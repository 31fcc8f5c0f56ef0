// Package catalog retrieves the product catalog shown by the storefront.
//
// Loading never fails from the caller's point of view: any transport,
// status or decoding problem is logged and the fixed fallback catalog is
// returned instead. The outcome of the most recent load is kept as an
// internal State for health checks, metrics and tests.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/devops-storefront/internal/domain/product"
)

// State describes the outcome of the most recent catalog load.
type State int32

const (
	// StateIdle means no load has been started yet.
	StateIdle State = iota
	// StateLoading means a load is in flight.
	StateLoading
	// StateLive means the last load returned the remote catalog.
	StateLive
	// StateFallback means the last load substituted the fallback catalog.
	StateFallback
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLive:
		return "live"
	case StateFallback:
		return "fallback"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// UnavailableError is returned by Fetch when the remote catalog could not be
// used. It covers transport failures, non-2xx responses and malformed
// payloads.
type UnavailableError struct {
	Endpoint string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("catalog %s unavailable: %v", e.Endpoint, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-2xx response from the catalog service.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Config holds the catalog endpoint settings.
type Config struct {
	// BaseURL is the API root; products are read from BaseURL + "/products".
	BaseURL string
	// Timeout bounds a single fetch. Zero leaves only the caller's context.
	Timeout time.Duration
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for catalog requests. Its transport is
// wrapped with otelhttp instrumentation.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		l.client = c
	}
}

// WithMeterProvider sets the meter provider used for load counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(l *Loader) {
		l.meterProvider = mp
	}
}

// WithTracerProvider sets the tracer provider used for outbound requests.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *Loader) {
		l.tracerProvider = tp
	}
}

// Loader fetches the product catalog from the configured endpoint.
type Loader struct {
	endpoint string
	timeout  time.Duration

	client         *http.Client
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	loads  metric.Int64Counter
	state  atomic.Int32
	loaded atomic.Bool
}

// NewLoader returns a Loader for the given configuration.
func NewLoader(cfg Config, opts ...Option) (*Loader, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("catalog base URL is required")
	}

	l := &Loader{
		endpoint:       strings.TrimRight(cfg.BaseURL, "/") + "/products",
		timeout:        cfg.Timeout,
		client:         &http.Client{},
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
	}
	for _, o := range opts {
		o(l)
	}

	base := l.client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	instrumented := *l.client
	instrumented.Transport = otelhttp.NewTransport(base,
		otelhttp.WithTracerProvider(l.tracerProvider),
		otelhttp.WithMeterProvider(l.meterProvider),
	)
	l.client = &instrumented

	loads, err := l.meterProvider.Meter("storefront/catalog").Int64Counter("storefront.catalog.loads",
		metric.WithDescription("Catalog loads by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create loads counter")
	}
	l.loads = loads

	return l, nil
}

// Endpoint returns the URL products are fetched from.
func (l *Loader) Endpoint() string {
	return l.endpoint
}

// State returns the outcome of the most recent load.
func (l *Loader) State() State {
	return State(l.state.Load())
}

// Loaded reports whether at least one load has completed, live or fallback.
func (l *Loader) Loaded() bool {
	return l.loaded.Load()
}

// Load returns the catalog to display. It never fails: when the remote
// catalog is unavailable the fallback sequence is returned.
func (l *Loader) Load(ctx context.Context) []product.Product {
	l.state.Store(int32(StateLoading))

	products, err := l.Fetch(ctx)
	if err != nil {
		zctx.From(ctx).Warn("Catalog unavailable, serving fallback",
			zap.String("endpoint", l.endpoint),
			zap.Error(err),
		)
		l.finish(ctx, StateFallback)
		return Fallback()
	}

	l.finish(ctx, StateLive)
	return products
}

func (l *Loader) finish(ctx context.Context, s State) {
	l.state.Store(int32(s))
	l.loaded.Store(true)
	l.loads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", s.String())))
}

// Fetch performs a single request against the catalog endpoint. Unlike Load
// it reports failures as *UnavailableError and does not touch the loader
// state.
func (l *Loader) Fetch(ctx context.Context) ([]product.Product, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	products, err := l.fetch(ctx)
	if err != nil {
		return nil, &UnavailableError{Endpoint: l.endpoint, Err: err}
	}
	return products, nil
}

func (l *Loader) fetch(ctx context.Context) ([]product.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	products, err := decodeProducts(jx.Decode(resp.Body, 4096))
	if err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}
