// Package handler serves the storefront pages and its JSON API.
//
// The handler is the presentation boundary: it renders the resolved catalog,
// the cart counter, the cart summary and pending notices. All cart state is
// owned by the visitor's session, which must be attached to the request by
// session.Store.Middleware.
package handler

import (
	"context"
	"html/template"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/devops-storefront/internal/catalog"
	"github.com/xenking/devops-storefront/internal/domain/product"
	"github.com/xenking/devops-storefront/internal/session"
	"github.com/xenking/devops-storefront/web"
)

// CatalogLoader resolves the catalog shown on a page load. Implementations
// must not fail; see catalog.Loader.
type CatalogLoader interface {
	Load(ctx context.Context) []product.Product
}

// Option configures a Handler.
type Option func(*Handler)

// WithMeterProvider sets the meter provider for cart counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(h *Handler) {
		h.meterProvider = mp
	}
}

// catalogState is implemented by loaders that report the outcome of their
// last load, like catalog.Loader.
type catalogState interface {
	State() catalog.State
}

// Handler serves storefront routes.
type Handler struct {
	catalog       CatalogLoader
	templates     *template.Template
	meterProvider metric.MeterProvider
	adds          metric.Int64Counter
}

// NewHandler parses the embedded templates and returns a Handler.
func NewHandler(catalog CatalogLoader, opts ...Option) (*Handler, error) {
	h := &Handler{
		catalog:       catalog,
		meterProvider: metricnoop.NewMeterProvider(),
	}
	for _, o := range opts {
		o(h)
	}

	tmpl, err := template.ParseFS(web.Templates, "templates/*.html.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}
	h.templates = tmpl

	adds, err := h.meterProvider.Meter("storefront/cart").Int64Counter("storefront.cart.adds",
		metric.WithDescription("Items added to carts"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create adds counter")
	}
	h.adds = adds

	return h, nil
}

// Register adds the storefront routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /cart", h.ShowCart)
	mux.HandleFunc("POST /cart/items", h.AddItem)

	mux.HandleFunc("GET /api/catalog", h.APICatalog)
	mux.HandleFunc("GET /api/cart", h.APICart)
	mux.HandleFunc("POST /api/cart/items", h.APIAddItem)
}

// session returns the request's session, which may be transient until
// session.Keep is called. A missing session means the middleware was not
// installed, which is a wiring bug.
func (h *Handler) session(r *http.Request) *session.Session {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		panic("handler: request has no session; install session.Store.Middleware")
	}
	return sess
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		// Headers are already sent; the best we can do is log.
		zctx.From(r.Context()).Error("Render template", zap.String("template", name), zap.Error(err))
	}
}
