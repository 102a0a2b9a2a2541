package presence

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	apphttp "chantier_portal_backend/internal/http"
	"chantier_portal_backend/platform/config"
	"chantier_portal_backend/platform/httpkit"
	"chantier_portal_backend/platform/logger"
)

// Module exposes the presence endpoints. Every authenticated user heartbeats;
// only the elevated roles may read who is online, which is why the read
// rides the admin group.
type Module struct {
	tracker *Tracker
	log     *logger.Logger
}

func NewModule(rdb *redis.Client, cfg config.PresenceConfig, log *logger.Logger) *Module {
	return &Module{tracker: NewTracker(rdb, cfg), log: log}
}

// Name implements http.Module.
func (m *Module) Name() string {
	return "presence"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/presence/heartbeat", m.heartbeat)
	ctx.Protected.DELETE("/presence", m.offline)
	ctx.Admin.GET("/presence", m.online)
}

func (m *Module) heartbeat(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := m.tracker.Heartbeat(c.Request.Context(), identity.UserID(), identity.Role()); err != nil {
		m.log.Error("presence heartbeat failed", "error", err)
		httpkit.HandleError(c, err)
		return
	}
	httpkit.NoContent(c)
}

func (m *Module) offline(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := m.tracker.Offline(c.Request.Context(), identity.UserID()); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.NoContent(c)
}

func (m *Module) online(c *gin.Context) {
	entries, err := m.tracker.Online(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"items": entries, "total": len(entries)})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
