package detection

import (
	"net/http"

	"github.com/dmitrymomot/devicedetect/pkg/logger"
)

// Middleware matches every request and stores the Match in the request
// context. Requests are passed on without a match when matching fails.
func Middleware(p *Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m, err := p.MatchRequest(r)
			if err != nil {
				p.log.WarnContext(r.Context(), "device detection failed", logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(SetMatchToContext(r.Context(), m)))
		})
	}
}
