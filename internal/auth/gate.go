package auth

import (
	"context"
	"net/http"

	"MiniCatalog/pkg/kit"
)

type ctxKey string

const principalKey ctxKey = "principal"

type Principal struct {
	UserID string
	Role   string
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// RequireRole rejects requests without a valid bearer token (401) and those
// whose token carries a role other than role (403). An empty role admits
// any authenticated caller.
func RequireRole(jwt *TokenMaker, role string, rs kit.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := kit.BearerToken(r)
			if !ok {
				rs.Error(w, r, http.StatusUnauthorized, "missing token", nil)
				return
			}

			claims, err := jwt.Parse(raw)
			if err != nil {
				rs.Error(w, r, http.StatusUnauthorized, "invalid token", nil)
				return
			}
			if role != "" && claims.Role != role {
				rs.Error(w, r, http.StatusForbidden, "forbidden", map[string]any{"required_role": role})
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, Principal{UserID: claims.UserID, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
