// Package handler exposes the chantier endpoints.
package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chantier_portal_backend/internal/accesscontrol"
	"chantier_portal_backend/internal/chantiers/service"
	"chantier_portal_backend/internal/chantiers/transport"
	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/httpkit"
)

// TaskEnqueuer schedules background maintenance runs.
type TaskEnqueuer interface {
	EnqueueTrashPurge(ctx context.Context) error
	EnqueueGeocodeBackfill(ctx context.Context, limit int) error
}

type Handler struct {
	svc      *service.Service
	enqueuer TaskEnqueuer
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// SetTaskEnqueuer injects the scheduler client. Without it the purge-expired
// endpoint reports the scheduler as unavailable.
func (h *Handler) SetTaskEnqueuer(enqueuer TaskEnqueuer) {
	h.enqueuer = enqueuer
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)

	// Trash before :id so the literal segment wins.
	rg.GET("/trash", h.ListTrash)
	rg.POST("/trash/:id/restore", h.Restore)
	rg.DELETE("/trash/:id", h.Purge)

	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.PATCH("/:id/address", h.UpdateAddress)
	rg.PUT("/:id/assignments", h.Assign)
	rg.GET("/:id/notes", h.ListNotes)
	rg.POST("/:id/notes", h.AddNote)
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req transport.CreateChantierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body").WithDetails(err.Error()))
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), actor, req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, resp)
}

func (h *Handler) Get(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Get(c.Request.Context(), actor, id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var query transport.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid query parameters"))
		return
	}

	resp, err := h.svc.List(c.Request.Context(), actor, query)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) Update(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req transport.UpdateChantierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body").WithDetails(err.Error()))
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) UpdateAddress(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req transport.UpdateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body").WithDetails(err.Error()))
		return
	}

	resp, err := h.svc.UpdateAddress(c.Request.Context(), actor, id, req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) Assign(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req transport.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}

	resp, err := h.svc.Assign(c.Request.Context(), actor, id, req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) Delete(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), actor, id); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.NoContent(c)
}

func (h *Handler) ListTrash(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	resp, err := h.svc.ListTrash(c.Request.Context(), actor)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) Restore(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Restore(c.Request.Context(), actor, id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) Purge(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	if err := h.svc.Purge(c.Request.Context(), actor, id); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.NoContent(c)
}

// PurgeExpired schedules a background run that empties every trash entry past
// the retention window.
func (h *Handler) PurgeExpired(c *gin.Context) {
	if h.enqueuer == nil {
		httpkit.HandleError(c, apperr.Internal("scheduler not configured"))
		return
	}

	if err := h.enqueuer.EnqueueTrashPurge(c.Request.Context()); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"status": "scheduled"})
}

// GeocodeBackfill schedules a background pass over chantiers that carry an
// address label but no coordinates yet.
func (h *Handler) GeocodeBackfill(c *gin.Context) {
	if h.enqueuer == nil {
		httpkit.HandleError(c, apperr.Internal("scheduler not configured"))
		return
	}

	var req transport.GeocodeBackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body").WithDetails(err.Error()))
		return
	}

	if err := h.enqueuer.EnqueueGeocodeBackfill(c.Request.Context(), req.Limit); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"status": "scheduled"})
}

func (h *Handler) AddNote(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req transport.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body").WithDetails(err.Error()))
		return
	}

	resp, err := h.svc.AddNote(c.Request.Context(), actor, id, req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, resp)
}

func (h *Handler) ListNotes(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	resp, err := h.svc.ListNotes(c.Request.Context(), actor, id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func currentActor(c *gin.Context) (accesscontrol.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return accesscontrol.Actor{}, false
	}

	role, err := accesscontrol.ParseRole(identity.Role())
	if err != nil {
		httpkit.HandleError(c, err)
		return accesscontrol.Actor{}, false
	}

	return accesscontrol.Actor{ID: identity.UserID(), Role: role}, true
}

func actorAndID(c *gin.Context) (accesscontrol.Actor, uuid.UUID, bool) {
	actor, ok := currentActor(c)
	if !ok {
		return accesscontrol.Actor{}, uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid chantier id"))
		return accesscontrol.Actor{}, uuid.Nil, false
	}

	return actor, id, true
}
