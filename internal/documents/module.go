package documents

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "chantier_portal_backend/internal/http"
	"chantier_portal_backend/platform/logger"
)

// Module wires document storage, metadata and routes.
type Module struct {
	handler *Handler
	storage *Storage
}

func NewModule(pool *pgxpool.Pool, chantiers ChantierStore, storage *Storage, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, chantiers, storage, log)
	return &Module{handler: NewHandler(svc), storage: storage}
}

// Name implements http.Module.
func (m *Module) Name() string {
	return "documents"
}

// RegisterRoutes registers the module's routes. Uploads hang off the chantier;
// downloads and deletes address the document directly.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	chantier := ctx.Protected.Group("/chantiers/:id/documents")
	chantier.POST("/upload-url", m.handler.UploadURL)
	chantier.POST("", m.handler.Register)
	chantier.GET("", m.handler.List)

	docs := ctx.Protected.Group("/documents")
	docs.GET("/:id/download-url", m.handler.DownloadURL)
	docs.DELETE("/:id", m.handler.Delete)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
