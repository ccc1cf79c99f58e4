package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/resale-backend/api/responses"
	pkgAuth "github.com/angelmondragon/resale-backend/pkg/auth"
	"github.com/angelmondragon/resale-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := pkgAuth.Parse(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, tokenError(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims, logg)))
		})
	}
}

// OptionalAuth attaches claims when a bearer token is present and lets
// anonymous requests through. A token that fails to parse is still rejected.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := pkgAuth.Parse(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, tokenError(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims, logg)))
		})
	}
}

func bearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

func tokenError(err error) error {
	msg := "invalid token"
	if errors.Is(err, pkgAuth.ErrExpired) {
		msg = "token expired"
	}
	return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg)
}

func withClaims(ctx context.Context, claims *pkgAuth.Claims, logg *logger.Logger) context.Context {
	ctx = WithUserID(ctx, claims.UserID.String())
	ctx = WithRole(ctx, claims.Role)
	if logg != nil {
		ctx = logg.WithUserID(ctx, claims.UserID.String())
		ctx = logg.WithActorRole(ctx, string(claims.Role))
	}
	return ctx
}
