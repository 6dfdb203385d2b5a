// internal/api/v2/health.go
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthCheck reports service status: version, uptime, mapping table stats
// and icon store connectivity.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":     "healthy",
		"version":    c.Settings.Version,
		"build_date": c.Settings.BuildDate,
		"timestamp":  time.Now().Format(time.RFC3339),
	}

	if c.Settings.WebServer.Debug {
		response["environment"] = "development"
	} else {
		response["environment"] = "production"
	}

	// Store connectivity: a cheap read proves the database answers.
	storeStatus := "connected"
	if _, err := c.Store.Categories(); err != nil {
		storeStatus = "disconnected"
		response["store_error"] = err.Error()
		response["status"] = "degraded"
	}
	response["store_status"] = storeStatus

	if c.Table != nil {
		response["mapping"] = c.Table.Stats()
	}

	if c.Files != nil {
		uploads, outputs := c.Files.Counts()
		response["transient_files"] = map[string]int{
			"uploads": uploads,
			"outputs": outputs,
		}
	}

	uptime := time.Since(c.startTime)
	response["uptime"] = uptime.String()
	response["uptime_seconds"] = uptime.Seconds()

	return ctx.JSON(http.StatusOK, response)
}
