// FilePath: api/middleware/api.middleware.requestid.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ateliersud/iothub/internal/hubservice"
	nuts "github.com/vaudience/go-nuts"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request an ID and echoes it in the response
// so that log lines and API errors can be correlated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = nuts.NID("req", 12)
		}

		w.Header().Set(requestIDHeader, id)
		type contextKey string
		ctx := context.WithValue(r.Context(), contextKey("request_id"), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserRoles extracts the caller's roles from the X-User-Roles header,
// set by the authenticating reverse proxy in front of the hub. Requests
// without the header run with guest permissions.
func UserRoles(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("X-User-Roles")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		roles := make([]string, 0, 4)
		for _, role := range strings.Split(header, ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}

		ctx := hubservice.WithUserRoles(r.Context(), roles)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
