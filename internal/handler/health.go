package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gh-proxy-go/internal/config"
	"gh-proxy-go/internal/guard"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	guard   *guard.Guard
	version Version
}

// StatusResponse is the body of /proxy/status.
type StatusResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	Prefix           string `json:"prefix"`
	CDNBaseURL       string `json:"cdn_base_url"`
	AssetBaseURL     string `json:"asset_base_url"`
	BranchMirror     bool   `json:"branch_mirror"`
	AllowListEntries int    `json:"allow_list_entries"`
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, g *guard.Guard, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, guard: g, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns proxy status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		Status:           "ok",
		Version:          string(h.version),
		Prefix:           h.cfg.Proxy.Prefix,
		CDNBaseURL:       h.cfg.Mirror.CDNBaseURL,
		AssetBaseURL:     h.cfg.Mirror.AssetBaseURL,
		BranchMirror:     h.cfg.Proxy.BranchMirror,
		AllowListEntries: h.guard.Len(),
	})
}
