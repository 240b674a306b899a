// Package auth carries the resolved caller identity through request contexts.
//
// It is imported by both middleware and handler packages without causing
// import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
)

type contextKey string

const identityContextKey contextKey = "identity"

// GetIdentity returns the identity stored by the identity middleware.
// ok is false when no identity was resolved.
//
// Usage:
//
//	id, ok := auth.GetIdentity(r.Context())
//	if !ok {
//	    // request did not pass through IdentityMiddleware
//	}
func GetIdentity(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(domain.Identity)
	return id, ok
}

// GetIdentityFromRequest is GetIdentity for a request.
func GetIdentityFromRequest(r *http.Request) (domain.Identity, bool) {
	return GetIdentity(r.Context())
}

// SetIdentity stores id in ctx.
func SetIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}
