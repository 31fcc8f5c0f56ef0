package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/devops-storefront/internal/catalog"
	"github.com/xenking/devops-storefront/internal/domain/product"
	"github.com/xenking/devops-storefront/internal/handler"
	"github.com/xenking/devops-storefront/internal/session"
	"github.com/xenking/devops-storefront/pkg/health"
)

type fallbackCatalog struct{}

func (fallbackCatalog) Load(context.Context) []product.Product { return catalog.Fallback() }

func newTestServer(t *testing.T, maxAdds int) (http.Handler, *session.Store) {
	t.Helper()

	h, err := handler.NewHandler(fallbackCatalog{})
	require.NoError(t, err)

	healthSvc := health.New()
	healthSvc.SetReady(true)

	sessions := session.NewStore(session.Config{})
	srv := newServerHandler(t.Context(), serverDeps{
		Logger:         zap.NewNop(),
		TracerProvider: tracenoop.NewTracerProvider(),
		MeterProvider:  metricnoop.NewMeterProvider(),
		RateLimit:      RateLimitConfig{Max: maxAdds, Window: time.Hour},
		Handler:        h,
		Sessions:       sessions,
		Health:         healthSvc,
	})
	return srv, sessions
}

func addItem(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/cart/items",
		strings.NewReader(`{"id": 1, "name": "Docker Container", "price": 29.99}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.7:4321"
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestServer_ProbesBypassSessions(t *testing.T) {
	srv, sessions := newTestServer(t, 10)

	for _, path := range []string{"/livez", "/readyz"} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String(), path)
		assert.Empty(t, w.Result().Cookies(), path)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"), path)
	}
	assert.Equal(t, 0, sessions.Len())
}

func TestServer_PageLoadsDoNotCreateSessions(t *testing.T) {
	srv, sessions := newTestServer(t, 10)

	for range 100 {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Empty(t, w.Result().Cookies())
	}
	assert.Equal(t, 0, sessions.Len())
}

func TestServer_ForgedCookiesAreLimited(t *testing.T) {
	srv, sessions := newTestServer(t, 2)

	allowed := 0
	for i := range 50 {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, addItem(&http.Cookie{Name: session.DefaultCookieName, Value: fmt.Sprintf("forged-%d", i)}))
		switch w.Code {
		case http.StatusCreated:
			allowed++
		case http.StatusTooManyRequests:
		default:
			t.Fatalf("unexpected status %d", w.Code)
		}
	}

	assert.Equal(t, 2, allowed, "forged cookies share the client IP budget")
	assert.Equal(t, 2, sessions.Len())
}

func TestServer_SessionHasOwnBudget(t *testing.T) {
	srv, _ := newTestServer(t, 2)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, addItem(nil))
	require.Equal(t, http.StatusCreated, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	for range 2 {
		w = httptest.NewRecorder()
		srv.ServeHTTP(w, addItem(cookies[0]))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, addItem(cookies[0]))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// The IP bucket still has room for one more cookieless add.
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, addItem(nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}
