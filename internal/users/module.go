// Package users provides authentication and user account management.
package users

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "chantier_portal_backend/internal/http"
	"chantier_portal_backend/internal/users/handler"
	"chantier_portal_backend/internal/users/repository"
	"chantier_portal_backend/internal/users/service"
	"chantier_portal_backend/platform/config"
	"chantier_portal_backend/platform/events"
	"chantier_portal_backend/platform/logger"
	"chantier_portal_backend/platform/validator"
)

// Module represents the users domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the users module with all dependencies wired
func NewModule(pool *pgxpool.Pool, cfg config.JWTConfig, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, bus, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "users"
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Login is public but rides the stricter credential rate limiter.
	auth := ctx.V1.Group("/auth")
	auth.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterAuthRoutes(auth)

	m.handler.RegisterProfileRoutes(ctx.Protected.Group("/auth"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/users"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
