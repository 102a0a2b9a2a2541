// Package handler exposes the auth and user management endpoints.
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chantier_portal_backend/internal/accesscontrol"
	"chantier_portal_backend/internal/users/service"
	"chantier_portal_backend/internal/users/transport"
	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/httpkit"
	"chantier_portal_backend/platform/validator"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	registerPasswordRule(val)
	return &Handler{svc: svc, val: val}
}

// RegisterAuthRoutes mounts the credential endpoints (rate limited, public).
func (h *Handler) RegisterAuthRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.Login)
}

// RegisterProfileRoutes mounts the self-service endpoints.
func (h *Handler) RegisterProfileRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
	rg.POST("/me/password", h.ChangePassword)
}

// RegisterAdminRoutes mounts user management.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.POST("/:id/suspend", h.Suspend)
	rg.POST("/:id/reactivate", h.Reactivate)
}

func (h *Handler) Login(c *gin.Context) {
	var req transport.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) Me(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	resp, err := h.svc.Me(c.Request.Context(), actor)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req transport.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body").WithDetails(err.Error()))
		return
	}

	if err := h.val.Var(req.NewPassword, "strongpassword"); err != nil {
		httpkit.HandleError(c, apperr.Validation(passwordPolicy))
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), actor, req); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.NoContent(c)
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req transport.CreateUserRequest
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

func (h *Handler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	resp, err := h.svc.List(c.Request.Context(), actor)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
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

func (h *Handler) Update(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req transport.UpdateUserRequest
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

func (h *Handler) Suspend(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Suspend(c.Request.Context(), actor, id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) Reactivate(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Reactivate(c.Request.Context(), actor, id)
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
		httpkit.HandleError(c, apperr.BadRequest("invalid user id"))
		return accesscontrol.Actor{}, uuid.Nil, false
	}

	return actor, id, true
}
