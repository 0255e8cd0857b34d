package controller

import (
	"net/http"
)

const (
	apiPrefix = "/api/v1.0"
	homeTitle = "SurfsUp Climate API"
)

// parseStatsBounds reads the date bounds from the path. Bounds are not
// validated: they compare against stored dates as plain strings.
func parseStatsBounds(r *http.Request) (start string, end *string) {
	start = r.PathValue("start")
	if s := r.PathValue("end"); s != "" {
		end = &s
	}
	return start, end
}
