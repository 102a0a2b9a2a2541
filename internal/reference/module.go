package reference

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "chantier_portal_backend/internal/http"
	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/httpkit"
)

// Module serves the chantier lookup tables.
type Module struct {
	repo *Repository
}

func NewModule(pool *pgxpool.Pool) *Module {
	return &Module{repo: NewRepository(pool)}
}

// Name implements http.Module.
func (m *Module) Name() string {
	return "reference"
}

// RegisterRoutes registers the module's routes. Reads ride the protected
// group; mutations ride the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	reads := ctx.Protected.Group("/reference")
	reads.GET("/:kind", m.list)

	writes := ctx.Admin.Group("/reference")
	writes.POST("/:kind", m.create)
	writes.DELETE("/:kind/:id", m.delete)
}

func parseKind(c *gin.Context) (Kind, bool) {
	kind := Kind(c.Param("kind"))
	if _, ok := tables[kind]; !ok {
		httpkit.HandleError(c, apperr.BadRequest("unknown reference kind"))
		return "", false
	}
	return kind, true
}

func (m *Module) list(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}

	items, err := m.repo.List(c.Request.Context(), kind)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

type createItemRequest struct {
	Label string `json:"label" binding:"required,min=1,max=200"`
}

func (m *Module) create(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}

	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}

	item, err := m.repo.Create(c.Request.Context(), kind, req.Label)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, item)
}

func (m *Module) delete(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid id"))
		return
	}

	if err := m.repo.Delete(c.Request.Context(), kind, id); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.NoContent(c)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
