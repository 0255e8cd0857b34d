package httpapi

import (
	"database/sql"
	"net/http"

	"surfsup-server/internal/metrics"
)

// NewMux returns a mux serving the operational endpoints. Feature modules
// register their own routes on it.
func NewMux(db *sql.DB) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}
