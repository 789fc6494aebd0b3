package domain

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// contextKey is a private type for request-scoped context values
type contextKey int

const requestContextKey contextKey = iota

// RequestContext contains request-specific information carried through the
// middleware chain and the dispatcher.
type RequestContext struct {
	RequestID  string
	RemoteAddr string
	UserAgent  string
	Method     string
	Path       string
	StartTime  time.Time
	Service    string
}

// NewRequestContext creates a new RequestContext from an HTTP request
func NewRequestContext(r *http.Request) *RequestContext {
	return &RequestContext{
		RequestID:  uuid.NewString(),
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
		Method:     r.Method,
		Path:       r.URL.Path,
		StartTime:  time.Now(),
	}
}

// WithRequestContext returns a context carrying the given RequestContext
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// RequestContextFrom extracts the RequestContext from a context, if present
func RequestContextFrom(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey).(*RequestContext)
	return rc, ok
}
