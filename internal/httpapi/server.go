package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"surfsup-server/internal/config"
)

// Handler wraps mux with the middleware chain, outermost first.
func Handler(cfg config.Config, mux *http.ServeMux) http.Handler {
	return chain(mux,
		middleware.RequestID,
		middleware.RealIP,
		requestLogger,
		instrument,
		middleware.Recoverer,
		rateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)
}

func NewServer(cfg config.Config, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           Handler(cfg, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
