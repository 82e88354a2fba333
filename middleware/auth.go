package middleware

import (
	"net"
	"net/http"
	"strings"

	goEntitle "github.com/MrEthical07/goEntitle"
)

// Authenticate verifies the bearer access token and stores the identity in
// the request context. It never touches Redis. The engine's logger is
// attached to the context for the handlers that follow.
func Authenticate(engine *goEntitle.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "authentication unavailable")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			ctx := engine.Logger().WithContext(r.Context())
			r = r.WithContext(ctx)
			if ip := clientIP(r); ip != "" {
				ctx = goEntitle.WithClientIP(ctx, ip)
			}

			id, err := engine.Authenticate(ctx, token)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(goEntitle.WithIdentity(ctx, id)))
		})
	}
}

// RequirePermission rejects identities lacking perm with 403. It must run
// after Authenticate.
func RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := goEntitle.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			if !id.HasPermission(perm) {
				writeError(w, r, http.StatusForbidden, "permission_denied", "missing permission "+perm)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
