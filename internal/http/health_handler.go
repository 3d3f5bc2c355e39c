package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthHandler reports liveness. The engine keeps no external state, so a
// responding process is healthy.
type HealthHandler struct {
	Version   string
	StartedAt time.Time
}

// HealthIndexAction handles the health check endpoint
func (h *HealthHandler) HealthIndexAction(c *fiber.Ctx) error {
	now := time.Now()
	return c.JSON(HealthStatus{
		Status:    "ok",
		Version:   h.Version,
		Uptime:    now.Sub(h.StartedAt).Truncate(time.Second).String(),
		Timestamp: now.UTC(),
	})
}
