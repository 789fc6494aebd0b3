package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/itamcore/gateway/pkg/logger"
)

// AdminAuth guards operator endpoints (the routing table listing) with a
// bearer token. Dispatch routes are never guarded: the gateway is
// protocol-transparent for in-scope traffic.
type AdminAuth struct {
	secret []byte
	logger *logger.Logger
}

// NewAdminAuth creates the admin endpoint guard using an HMAC secret
func NewAdminAuth(secret string, log *logger.Logger) *AdminAuth {
	return &AdminAuth{
		secret: []byte(secret),
		logger: log.MiddlewareLogger("admin_auth"),
	}
}

// Middleware validates the Authorization bearer token on guarded routes
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := a.extractToken(r)
		if err != nil {
			a.logger.WithError(err).WithField("path", r.URL.Path).
				Warn("Admin request rejected")
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if !token.Valid {
			a.logger.WithField("path", r.URL.Path).Warn("Admin token invalid")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractToken parses and verifies the bearer token from the request
func (a *AdminAuth) extractToken(r *http.Request) (*jwt.Token, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, fmt.Errorf("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, fmt.Errorf("authorization header is not a bearer token")
	}

	return jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
}
