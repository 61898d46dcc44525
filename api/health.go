package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

var startedAt = time.Now()

// HealthResponse defines the data the Health
// REST endpoint returns.
type HealthResponse struct {
	Status   Status        `json:"status"`
	Database Status        `json:"database"`
	Uptime   time.Duration `json:"uptime"`
}

// Health reports whether snapngo and its ledger database are reachable.
// The response also includes the uptime.
func Health(conn *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := HealthResponse{
			Status:   Healthy,
			Database: Healthy,
			Uptime:   time.Since(startedAt),
		}

		if err := ping(c, conn); err != nil {
			resp.Status = Degraded
			resp.Database = Unhealthy
			return c.JSON(http.StatusServiceUnavailable, resp)
		}

		return c.JSON(http.StatusOK, resp)
	}
}

func ping(c echo.Context, conn *gorm.DB) error {
	if conn == nil {
		return gorm.ErrInvalidDB
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(c.Request().Context())
}

// Status enumerates the health statuses of snapngo.
type Status string

const (
	// Healthy implies snapngo is having no major issues.
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
)
