// Package chantiers provides the chantier domain module: CRUD, assignments,
// notes and the trash lifecycle.
package chantiers

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"chantier_portal_backend/internal/chantiers/handler"
	"chantier_portal_backend/internal/chantiers/repository"
	"chantier_portal_backend/internal/chantiers/service"
	apphttp "chantier_portal_backend/internal/http"
	"chantier_portal_backend/platform/events"
	"chantier_portal_backend/platform/logger"
)

// Module represents the chantiers domain module
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	repository *repository.Repository
}

// NewModule creates the chantiers module with all dependencies wired
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)

	return &Module{
		handler:    handler.New(svc),
		service:    svc,
		repository: repo,
	}
}

// Repository exposes the chantier store for modules whose rights follow the
// chantier (documents).
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "chantiers"
}

// SetTaskEnqueuer injects the scheduler client for the purge-expired endpoint.
func (m *Module) SetTaskEnqueuer(enqueuer handler.TaskEnqueuer) {
	m.handler.SetTaskEnqueuer(enqueuer)
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/chantiers"))
	ctx.Admin.POST("/chantiers/trash/purge-expired", m.handler.PurgeExpired)
	ctx.Admin.POST("/chantiers/geocode/backfill", m.handler.GeocodeBackfill)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
