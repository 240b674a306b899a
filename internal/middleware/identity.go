// Package middleware contains HTTP middleware for the summarizer API.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler
// and are composed with Stack.
package middleware

import (
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/ankurclub/clever-video-summarizer/internal/auth"
	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/handler"
)

// Headers set by the identity provider's gateway, or by anonymous clients.
const (
	HeaderUserID        = "X-User-ID"
	HeaderUserPlan      = "X-User-Plan"
	HeaderGatewaySecret = "X-Gateway-Secret"
	HeaderAnonymousID   = "X-Anonymous-ID"
)

// anonymousKeyLength is the number of hex characters kept from the IP hash.
const anonymousKeyLength = 32

var anonymousIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// =============================================================================
// Identity Middleware
// =============================================================================

// IdentityMiddleware resolves the caller into a domain.Identity.
//
// Authenticated users arrive with gateway headers. Everyone else is an
// anonymous Free identity keyed by the client-held anonymous id or, failing
// that, a salted hash of the client IP.
type IdentityMiddleware struct {
	gatewaySecret string
	salt          string
	logger        *slog.Logger
}

// NewIdentityMiddleware creates an IdentityMiddleware. With an empty
// gatewaySecret the user headers are trusted as-is, which is only safe
// behind a proxy that strips them from client requests.
func NewIdentityMiddleware(gatewaySecret, salt string, logger *slog.Logger) *IdentityMiddleware {
	return &IdentityMiddleware{
		gatewaySecret: gatewaySecret,
		salt:          salt,
		logger:        logger,
	}
}

// Handler stores the resolved identity in the request context.
func (m *IdentityMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.Resolve(r)
		if err != nil {
			handler.ErrorResponse(w, r, m.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.SetIdentity(r.Context(), id)))
	})
}

// Resolve derives the identity of r.
func (m *IdentityMiddleware) Resolve(r *http.Request) (domain.Identity, error) {
	const op = "middleware.identity"

	if userID := strings.TrimSpace(r.Header.Get(HeaderUserID)); userID != "" {
		if m.gatewaySecret != "" {
			given := r.Header.Get(HeaderGatewaySecret)
			if subtle.ConstantTimeCompare([]byte(given), []byte(m.gatewaySecret)) != 1 {
				m.logger.Warn("identity headers without valid gateway secret",
					"ip", getClientIP(r),
					"path", r.URL.Path,
				)
				return domain.Identity{}, domain.Errorf(domain.EUNAUTHORIZED, op, "Untrusted identity headers")
			}
		}
		if !domain.ValidIdentityKey(userID) {
			return domain.Identity{}, domain.Errorf(domain.EUNAUTHORIZED, op, "Invalid user id")
		}
		return domain.Identity{
			Key:  userID,
			Tier: domain.ParsePlanTier(r.Header.Get(HeaderUserPlan)),
		}, nil
	}

	if anonID := strings.TrimSpace(r.Header.Get(HeaderAnonymousID)); anonymousIDPattern.MatchString(anonID) {
		return domain.NewAnonymous(anonID), nil
	}

	return domain.NewAnonymous(m.hashIP(getClientIP(r))), nil
}

func (m *IdentityMiddleware) hashIP(ip string) string {
	sum := blake2b.Sum256([]byte(m.salt + ip))
	return hex.EncodeToString(sum[:])[:anonymousKeyLength]
}

// =============================================================================
// Helpers
// =============================================================================

// Stack composes middleware so the first argument runs outermost.
//
// Usage:
//
//	chain := Stack(security.Handler, logging.Handler, metrics.Middleware)
//	http.ListenAndServe(":8080", chain(mux))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// MaxBody limits request bodies to limit bytes.
func MaxBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
