package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	store   Store
	version string
}

func NewHealthController(store Store, version string) *HealthController {
	return &HealthController{store: store, version: version}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.store == nil {
		checks["database"] = "not configured"
	} else if err := h.store.Ping(c.Request.Context()); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "unhealthy"
	} else {
		checks["database"] = "ok"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.IndentedJSON(code, HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	})
}
