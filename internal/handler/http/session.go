package http

import (
	"net/http"
	"strings"

	"github.com/dfgutierrez/sigr-sales/internal/session"
)

// sessionFromRequest captures the caller's bearer token and operator identity
// as a request-scoped session, so collaborator calls made on behalf of this
// request carry the operator's own credentials.
func sessionFromRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}

		op := operatorID(r)
		if token != "" || op != "" {
			ctx := session.NewContext(r.Context(), &session.Static{
				BearerToken: token,
				Operator:    op,
			})
			r = r.WithContext(ctx)
		}

		next.ServeHTTP(w, r)
	})
}
