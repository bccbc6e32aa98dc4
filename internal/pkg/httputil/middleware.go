package httputil

import (
	"context"
	"net/http"

	"github.com/bissquit/pagelite/internal/pkg/ctxlog"
	"github.com/go-chi/chi/v5"
)

// CORSMiddleware creates CORS middleware that handles preflight requests
// and adds appropriate CORS headers to responses.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	originsSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if originsSet[origin] || originsSet["*"] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}

			// Handle preflight OPTIONS request
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type contextKey string

// PageSlugKey is the context key holding the slug resolved from an edit token.
const PageSlugKey contextKey = "page_slug"

// EditTokenResolver maps an edit token to the slug of the page it controls.
type EditTokenResolver interface {
	ResolveEditToken(ctx context.Context, token string) (slug string, err error)
}

// RequireEditToken creates middleware that rejects requests whose {token}
// path parameter does not belong to a page. Resolver errors are written
// through mappings. The resolved slug is stored in the context and added
// to the request logger.
func RequireEditToken(resolver EditTokenResolver, mappings []ErrorMapping) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := chi.URLParam(r, "token")

			slug, err := resolver.ResolveEditToken(r.Context(), token)
			if err != nil {
				HandleError(r.Context(), w, err, mappings)
				return
			}

			ctx := context.WithValue(r.Context(), PageSlugKey, slug)
			ctx = ctxlog.With(ctx, "slug", slug)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPageSlug extracts the slug stored by RequireEditToken.
func GetPageSlug(ctx context.Context) string {
	if slug, ok := ctx.Value(PageSlugKey).(string); ok {
		return slug
	}
	return ""
}
