package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const corporationKey contextKey = "corporation_uuid"

// CorporationFilterMiddleware handles multi-tenant scoping. Every document
// operation is partitioned by corporation; the corporation is taken from the
// X-Corporation-UUID header or the corporation_uuid query parameter.
type CorporationFilterMiddleware struct {
	logger *zap.Logger
}

func NewCorporationFilterMiddleware(logger *zap.Logger) *CorporationFilterMiddleware {
	return &CorporationFilterMiddleware{logger: logger}
}

// Filter resolves the corporation for the request and stores it in the
// context. A malformed uuid is rejected here; a missing one is left for the
// handler, since some endpoints carry it in the body.
func (m *CorporationFilterMiddleware) Filter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corp := r.Header.Get("X-Corporation-UUID")
		if corp == "" {
			corp = r.URL.Query().Get("corporation_uuid")
		}
		if corp != "" {
			if _, err := uuid.Parse(corp); err != nil {
				m.logger.Warn("rejected malformed corporation uuid",
					zap.String("corporation_uuid", corp),
					zap.String("path", r.URL.Path),
				)
				http.Error(w, "Invalid corporation_uuid parameter", http.StatusBadRequest)
				return
			}
			ctx := context.WithValue(r.Context(), corporationKey, corp)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// CorporationFromContext returns the corporation uuid resolved for the
// request, or an empty string.
func CorporationFromContext(ctx context.Context) string {
	corp, _ := ctx.Value(corporationKey).(string)
	return corp
}
