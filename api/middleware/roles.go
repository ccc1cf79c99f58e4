package middleware

import (
	"net/http"
	"slices"

	"github.com/angelmondragon/resale-backend/api/responses"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
)

// RequireAnyRole admits callers whose platform role is one of allowed.
func RequireAnyRole(logg *logger.Logger, allowed ...enums.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(allowed, RoleFromContext(r.Context())) {
				next.ServeHTTP(w, r)
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required").WithDetails(map[string]any{"allowed": allowed}))
		})
	}
}
