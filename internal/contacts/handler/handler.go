// Package handler exposes the contact endpoints.
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chantier_portal_backend/internal/accesscontrol"
	"chantier_portal_backend/internal/contacts/service"
	"chantier_portal_backend/internal/contacts/transport"
	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/httpkit"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
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
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req transport.CreateContactRequest
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

	resp, err := h.svc.List(c.Request.Context(), actor, c.Query("search"))
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

	var req transport.UpdateContactRequest
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
		httpkit.HandleError(c, apperr.BadRequest("invalid contact id"))
		return accesscontrol.Actor{}, uuid.Nil, false
	}

	return actor, id, true
}
