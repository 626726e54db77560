package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	metrics "ledger/internal/pkg/telemetry"
)

// MakeMetricsHandler serves the legacy JSON metrics list, kept for the
// TUI dashboard alongside the Prometheus exposition endpoint.
func MakeMetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.List())
	}
}

// PrometheusHandler adapts promhttp's handler to gin.
func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
