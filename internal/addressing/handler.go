package addressing

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/httpkit"
	"chantier_portal_backend/platform/logger"
)

// Handler exposes address resolution sessions over HTTP. Commands are POSTs
// mutating the session; the frontend mirrors state from the SSE stream.
type Handler struct {
	manager *Manager
	log     *logger.Logger
}

// NewHandler creates the addressing handler.
func NewHandler(manager *Manager, log *logger.Logger) *Handler {
	return &Handler{manager: manager, log: log}
}

// Open creates a new session for the authenticated user.
func (h *Handler) Open(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}

	session := h.manager.Open(identity.UserID(), Selection{Label: req.Label, Lat: req.Lat, Lng: req.Lng})

	httpkit.Created(c, SessionResponse{
		SessionID: session.ID.String(),
		Snapshot:  session.Resolver.Snapshot(),
	})
}

// Snapshot returns the current session state. The SSE stream is the normal
// path; this exists for reconnect catch-up.
func (h *Handler) Snapshot(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	httpkit.OK(c, session.Resolver.Snapshot())
}

// Query records a keystroke.
func (h *Handler) Query(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}

	session.Resolver.SetQuery(req.Query)
	httpkit.NoContent(c)
}

// Submit handles the Enter key in the search input.
func (h *Handler) Submit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	session.Resolver.SubmitQuery()
	httpkit.NoContent(c)
}

// Select picks a candidate from the current result list.
func (h *Handler) Select(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}

	if err := session.Resolver.SelectCandidate(req.Index); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.NoContent(c)
}

// MapClick handles a click on the map widget.
func (h *Handler) MapClick(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req PointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid coordinates"))
		return
	}

	session.Resolver.ClickMap(req.Lat, req.Lng)
	httpkit.NoContent(c)
}

// Locate handles a successful browser geolocation.
func (h *Handler) Locate(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req PointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid coordinates"))
		return
	}

	session.Resolver.Locate(req.Lat, req.Lng)
	httpkit.NoContent(c)
}

// LocateFailed reports a geolocation denial or error.
func (h *Handler) LocateFailed(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req LocateFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}

	session.Resolver.LocateFailed(req.Reason)
	httpkit.NoContent(c)
}

// Confirm finalizes the selection and tears the session down.
func (h *Handler) Confirm(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	selection, err := session.Resolver.Confirm()
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	h.manager.Close(session.ID, identity.UserID())
	httpkit.OK(c, ConfirmResponse{Selection: selection})
}

// Close abandons the session without confirming.
func (h *Handler) Close(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid session id"))
		return
	}

	h.manager.Close(id, identity.UserID())
	httpkit.NoContent(c)
}

// Stream pushes session snapshots over SSE until the client disconnects or
// the session closes.
func (h *Handler) Stream(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	snapshots, unsubscribe := session.Resolver.Subscribe()
	defer unsubscribe()

	// Initial snapshot so a reconnecting client resyncs immediately.
	h.writeSnapshot(c, session.Resolver.Snapshot())

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case snap, open := <-snapshots:
			if !open {
				// Session confirmed, closed or expired.
				return
			}
			h.writeSnapshot(c, snap)
			session.touch()
		}
	}
}

func (h *Handler) writeSnapshot(c *gin.Context, snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		h.log.Error("marshal snapshot", "error", err)
		return
	}
	c.SSEvent("snapshot", string(data))
	c.Writer.Flush()
}

// session resolves the :id param to a session owned by the caller. On failure
// the error response has already been written.
func (h *Handler) session(c *gin.Context) (*Session, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid session id"))
		return nil, false
	}

	session, err := h.manager.Get(id, identity.UserID())
	if err != nil {
		httpkit.HandleError(c, err)
		return nil, false
	}

	return session, true
}
