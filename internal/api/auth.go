package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// adminClaims is the minimal claim set an admin token carries: standard
// registered claims (expiry, issuer) plus nothing role-specific, since this
// API has exactly one privileged role.
type adminClaims struct {
	jwt.RegisteredClaims
}

// MintAdminToken signs a bearer token cmd/crossroads hands to an operator,
// valid for ttl, using the same HS256 signing method the teacher's
// checkBearerToken-style static comparison is replaced with (a static
// shared secret comparison has no expiry; a signed JWT does).
func MintAdminToken(secret []byte, ttl time.Duration) (string, error) {
	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "crossroads",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// requireAdmin wraps a handler to require a valid bearer-token JWT, the
// teacher's adminOnly generalized from a static string comparison
// (checkBearerToken) to verified, expiring tokens.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.JWTSecret) == 0 {
			writeError(w, http.StatusForbidden, "admin endpoints disabled (no JWT secret configured)")
			return
		}

		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		var claims adminClaims
		_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return s.JWTSecret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
