package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// publicPaths bypass authentication (probes and scrapes).
var publicPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

const (
	bearerPrefix = "Bearer "
	apiKeyHeader = "X-API-Key"
)

// BearerAuthMiddleware accepts requests carrying one of apiKeys either as a
// Bearer token or in the X-API-Key header.
// If apiKeys has no non-empty entry, authentication is disabled.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, problem := credential(r)
			if problem != "" {
				unauthorized(w, problem)
				return
			}
			if !knownKey(keys, token) {
				unauthorized(w, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// credential extracts the presented key, or a reason why none was usable.
func credential(r *http.Request) (string, string) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if !strings.HasPrefix(auth, bearerPrefix) {
			return "", "authorization header must use Bearer scheme"
		}
		return strings.TrimSpace(auth[len(bearerPrefix):]), ""
	}
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return key, ""
	}
	return "", "missing authorization header"
}

func knownKey(keys [][]byte, token string) bool {
	t := []byte(token)
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(k, t)
	}
	return found == 1
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="contextq"`)
	writeError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
}
