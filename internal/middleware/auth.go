package middleware

import (
	"context"
	"net/http"
	"strings"

	"shopfront/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the authenticated shopper.
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the shopper set by Authenticate.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(model.Identity)
	return identity, ok
}

// Authenticate verifies the HS256 bearer token issued by the identity provider
// and stores the shopper identity in the request context. An empty issuer
// skips the issuer check.
func Authenticate(secret, issuer string, logger zerolog.Logger) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing bearer token")
				return
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("invalid bearer token")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "invalid token")
				return
			}

			identity := identityFromClaims(claims)
			if identity.UserID == "" {
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "token has no subject")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func identityFromClaims(claims jwt.MapClaims) model.Identity {
	str := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := claims[k].(string); ok && v != "" {
				return v
			}
		}
		return ""
	}

	return model.Identity{
		UserID:    str("sub"),
		Email:     str("email"),
		FirstName: str("given_name", "first_name"),
		LastName:  str("family_name", "last_name"),
		Role:      str("role"),
	}
}
