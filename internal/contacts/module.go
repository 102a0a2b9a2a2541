// Package contacts provides the contact (client) domain module.
package contacts

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"chantier_portal_backend/internal/contacts/handler"
	"chantier_portal_backend/internal/contacts/repository"
	"chantier_portal_backend/internal/contacts/service"
	apphttp "chantier_portal_backend/internal/http"
	"chantier_portal_backend/platform/logger"
)

// Module represents the contacts domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the contacts module with all dependencies wired
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)

	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "contacts"
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/contacts"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
