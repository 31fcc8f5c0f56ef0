package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// binding ties the request's session to the response that may need to set
// its cookie.
type binding struct {
	store   *Store
	w       http.ResponseWriter
	resumed bool

	mu   sync.Mutex
	sess *Session
	kept bool
}

type bindingKey struct{}

func bindingFrom(ctx context.Context) (*binding, bool) {
	b, ok := ctx.Value(bindingKey{}).(*binding)
	return b, ok
}

// Middleware resolves the session cookie. A request without a valid cookie
// gets a transient session that is not registered and sets no cookie until
// a handler calls Keep, so read-only traffic does not grow the store. The
// session is available to handlers through FromContext.
func (s *Store) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b := &binding{store: s, w: w}
			if c, err := r.Cookie(s.cfg.CookieName); err == nil {
				b.sess, b.resumed = s.Get(c.Value)
			}
			if b.sess == nil {
				b.sess = s.transient()
			}

			ctx := context.WithValue(r.Context(), bindingKey{}, b)
			ctx = NewContext(ctx, b.sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Keep registers the request's session and sets its cookie if the session
// was created for this request. It must be called before the response
// header is written. Keep is a no-op for resumed sessions and for contexts
// without the middleware.
func Keep(ctx context.Context) {
	b, ok := bindingFrom(ctx)
	if !ok || b.resumed {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.kept {
		return
	}
	b.kept = true

	s := b.store
	s.add(b.sess)
	http.SetCookie(b.w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    b.sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	zctx.From(ctx).Debug("Session created", zap.String("session", b.sess.ID))
}

// RateKey returns a rate limit key function that identifies clients by a
// session resumed from a valid cookie. Requests whose cookie is missing or
// unknown yield an empty key, so forged cookies fall back to the client IP.
// The key function must run inside Middleware.
func (s *Store) RateKey() func(*http.Request) string {
	return func(r *http.Request) string {
		b, ok := bindingFrom(r.Context())
		if !ok || !b.resumed {
			return ""
		}
		return b.sess.ID
	}
}
