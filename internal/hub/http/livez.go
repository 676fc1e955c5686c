package http

import (
	"net/http"
	"time"

	"github.com/severindevelopment/hub/pkg/httpx"
	"github.com/severindevelopment/hub/pkg/hubsdk"
)

// LivezHandler always reports ok while the process is up.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, hubsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}
