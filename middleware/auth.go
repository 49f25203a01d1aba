package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const claimsKey contextKey = "claims"

// Claims is the verified payload of an issuer token. The subject id and
// expiry live in RegisteredClaims; email and preferred_username follow the
// issuer's claim names.
type Claims struct {
	Email    string `json:"email"`
	Username string `json:"preferred_username"`
	jwt.RegisteredClaims
}

// DisplayName picks the best available human-readable name from the claims.
func (c *Claims) DisplayName() string {
	if c.Username != "" {
		return c.Username
	}
	if i := strings.IndexByte(c.Email, '@'); i > 0 {
		return c.Email[:i]
	}
	return c.Subject
}

// NewIssuerKeyfunc builds a jwt.Keyfunc backed by the issuer's published JWKS,
// refreshed in the background for the lifetime of ctx.
func NewIssuerKeyfunc(ctx context.Context, jwksURL string) (jwt.Keyfunc, error) {
	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, err
	}
	return kf.Keyfunc, nil
}

// Auth rejects requests whose bearer token is absent, malformed, expired, or
// signed by an unknown key, and allow-lists the issuer when issuers is
// non-empty. Verified claims are placed in the request context. Rejection
// happens before identity resolution, so a bad token never causes a write.
func Auth(keyFn jwt.Keyfunc, issuers []string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(auth, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, `{"error":"invalid authorization format"}`, http.StatusUnauthorized)
				return
			}
			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, keyFn, jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}
			if len(issuers) > 0 && !issuerAllowed(claims.Issuer, issuers) {
				http.Error(w, `{"error":"unknown token issuer"}`, http.StatusUnauthorized)
				return
			}
			if claims.Subject == "" {
				http.Error(w, `{"error":"token missing subject"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func issuerAllowed(iss string, issuers []string) bool {
	for _, allowed := range issuers {
		if iss == allowed {
			return true
		}
	}
	return false
}

// WithClaims returns a context carrying verified claims. Exported for handler
// tests.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}
