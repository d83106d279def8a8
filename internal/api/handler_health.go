package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AppName is reported by the health endpoint.
const AppName = "Billing Admin Backend"

// Version is set at build time with -ldflags "-X".
var Version = "1.0.0"

type healthResponse struct {
	Status  string `json:"status"`
	App     string `json:"app"`
	Version string `json:"version"`
}

// Health handles GET /health and GET /.
func (h *Handler) Health(c *gin.Context) {
	respond(c, http.StatusOK, healthResponse{Status: "healthy", App: AppName, Version: Version})
}
