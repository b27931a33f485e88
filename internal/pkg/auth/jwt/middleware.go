package jwt

import (
	"context"
	"net/http"
	"strings"

	"chatsync/internal/pkg/logx"
)

type contextKey string

// ContextClaimsKey stores the caller's parsed *Claims in the request context.
const ContextClaimsKey contextKey = "auth_claims"

// IdentityExtractorMiddleware parses a "Bearer <token>" Authorization header,
// or an access_token query parameter for WebSocket clients that cannot set
// headers, and stores the claims in the request context. Requests without a
// valid token pass through anonymously; handlers decide whether that is enough.
func IdentityExtractorMiddleware(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := ParseToken(tokenString, secretKey)
			if err != nil {
				logx.Warn("Invalid or expired token on local API, treating as anonymous", "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by IdentityExtractorMiddleware,
// or nil for anonymous requests.
func ClaimsFromContext(r *http.Request) *Claims {
	claims, ok := r.Context().Value(ContextClaimsKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || scheme != "Bearer" {
			return ""
		}
		return token
	}
	return r.URL.Query().Get("access_token")
}
