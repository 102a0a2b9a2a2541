package addressing

import (
	apphttp "chantier_portal_backend/internal/http"
	"chantier_portal_backend/platform/config"
	"chantier_portal_backend/platform/logger"
)

// Module wires the address resolution session feature.
type Module struct {
	manager *Manager
	handler *Handler
}

// NewModule builds the addressing module with its geocoder and session
// manager.
func NewModule(geocoder Geocoder, cfg config.AddressSessionConfig, log *logger.Logger) *Module {
	manager := NewManager(geocoder, cfg, log)
	return &Module{
		manager: manager,
		handler: NewHandler(manager, log),
	}
}

// Name implements http.Module.
func (m *Module) Name() string {
	return "addressing"
}

// RegisterRoutes mounts the session endpoints. Everything requires
// authentication; any valid role may resolve an address because the forms
// that embed the selector are themselves role-gated.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	sessions := ctx.Protected.Group("/address-sessions")
	{
		sessions.POST("", m.handler.Open)
		sessions.GET("/:id", m.handler.Snapshot)
		sessions.GET("/:id/stream", m.handler.Stream)
		sessions.POST("/:id/query", m.handler.Query)
		sessions.POST("/:id/submit", m.handler.Submit)
		sessions.POST("/:id/select", m.handler.Select)
		sessions.POST("/:id/map-click", m.handler.MapClick)
		sessions.POST("/:id/locate", m.handler.Locate)
		sessions.POST("/:id/locate-failed", m.handler.LocateFailed)
		sessions.POST("/:id/confirm", m.handler.Confirm)
		sessions.DELETE("/:id", m.handler.Close)
	}
}

// Shutdown closes every live session. Called from main on server stop.
func (m *Module) Shutdown() {
	m.manager.Shutdown()
}
