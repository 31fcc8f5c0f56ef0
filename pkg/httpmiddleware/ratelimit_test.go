package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func addItemRequest(remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", nil)
	req.RemoteAddr = remoteAddr
	return req
}

func TestRateLimit_UnderLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(okHandler())

	for i := range 5 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, addItemRequest("192.168.1.1:12345"))

		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_OverLimitJSON(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, addItemRequest("10.0.0.1:9999"))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, addItemRequest("10.0.0.1:9999"))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_OverLimitForm(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/cart/items", nil)
		req.RemoteAddr = "10.0.0.7:1000"
		return req
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newReq())
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, newReq())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestRateLimit_DifferentIPs(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, addItemRequest("10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, addItemRequest("10.0.0.2:1234"))
	assert.Equal(t, http.StatusOK, w2.Code)

	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, addItemRequest("10.0.0.1:5678"))
	assert.Equal(t, http.StatusTooManyRequests, w3.Code)
}

func TestRateLimit_MethodFilter(t *testing.T) {
	handler := RateLimit(RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		Methods: []string{http.MethodPost},
	})(okHandler())

	// Page loads are never limited.
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.3:1"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, addItemRequest("10.0.0.3:1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, addItemRequest("10.0.0.3:1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimit_SessionKeyFunc(t *testing.T) {
	handler := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			c, err := r.Cookie("storefront_session")
			if err != nil {
				return ""
			}
			return c.Value
		},
	})(okHandler())

	withSession := func(id string) *http.Request {
		req := addItemRequest("10.0.0.9:1")
		req.AddCookie(&http.Cookie{Name: "storefront_session", Value: id})
		return req
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, withSession("a"))
	assert.Equal(t, http.StatusOK, w.Code)

	// Same client IP, different session: independent budget.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, withSession("b"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, withSession("a"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// No cookie falls back to the client IP.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, addItemRequest("10.0.0.9:1"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_XForwardedFor(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	req := addItemRequest("192.168.1.1:4444")
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req2 := addItemRequest("192.168.1.2:5555")
	req2.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
}

func TestLimiter_Evict(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, l.decide("k", start).allowed)
	require.Len(t, l.counters, 1)

	// The previous window still counts toward the sliding estimate.
	assert.Equal(t, 0, l.evict(start.Add(time.Minute)))
	assert.Equal(t, 1, l.evict(start.Add(3*time.Minute)))
	assert.Empty(t, l.counters)
}

func TestLimiter_SlidingWindow(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 4, Window: time.Minute})
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for range 4 {
		require.True(t, l.decide("k", start).allowed)
	}
	assert.False(t, l.decide("k", start.Add(59*time.Second)).allowed)

	// Halfway into the next window, half of the previous 4 hits still count.
	mid := start.Add(90 * time.Second)
	v := l.decide("k", mid)
	require.True(t, v.allowed)
	assert.Equal(t, 1, v.remaining)
	assert.Equal(t, start.Add(2*time.Minute), v.reset.UTC())

	require.True(t, l.decide("k", mid).allowed)
	assert.False(t, l.decide("k", mid).allowed)
}
