package documents

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chantier_portal_backend/internal/accesscontrol"
	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/httpkit"
)

// UploadURLRequest asks for a presigned PUT link before the upload starts.
type UploadURLRequest struct {
	FileName    string `json:"fileName" binding:"required,min=1,max=255"`
	ContentType string `json:"contentType" binding:"required"`
	SizeBytes   int64  `json:"sizeBytes" binding:"required,min=1"`
}

// RegisterRequest records a finished upload.
type RegisterRequest struct {
	FileKey     string `json:"fileKey" binding:"required"`
	FileName    string `json:"fileName" binding:"required,min=1,max=255"`
	ContentType string `json:"contentType" binding:"required"`
	SizeBytes   int64  `json:"sizeBytes" binding:"required,min=1"`
}

// DocumentListResponse wraps a chantier's documents.
type DocumentListResponse struct {
	Items []Document `json:"items"`
	Total int        `json:"total"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) UploadURL(c *gin.Context) {
	actor, chantierID, ok := actorAndParam(c, "id", "invalid chantier id")
	if !ok {
		return
	}

	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body").WithDetails(err.Error()))
		return
	}

	presigned, err := h.svc.RequestUpload(c.Request.Context(), actor, chantierID, req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, presigned)
}

func (h *Handler) Register(c *gin.Context) {
	actor, chantierID, ok := actorAndParam(c, "id", "invalid chantier id")
	if !ok {
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body").WithDetails(err.Error()))
		return
	}

	doc, err := h.svc.Register(c.Request.Context(), actor, chantierID, req.FileKey, req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, doc)
}

func (h *Handler) List(c *gin.Context) {
	actor, chantierID, ok := actorAndParam(c, "id", "invalid chantier id")
	if !ok {
		return
	}

	items, err := h.svc.List(c.Request.Context(), actor, chantierID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, DocumentListResponse{Items: items, Total: len(items)})
}

func (h *Handler) DownloadURL(c *gin.Context) {
	actor, documentID, ok := actorAndParam(c, "id", "invalid document id")
	if !ok {
		return
	}

	presigned, err := h.svc.RequestDownload(c.Request.Context(), actor, documentID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, presigned)
}

func (h *Handler) Delete(c *gin.Context) {
	actor, documentID, ok := actorAndParam(c, "id", "invalid document id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), actor, documentID); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.NoContent(c)
}

func actorAndParam(c *gin.Context, param, badIDMessage string) (accesscontrol.Actor, uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return accesscontrol.Actor{}, uuid.Nil, false
	}

	role, err := accesscontrol.ParseRole(identity.Role())
	if err != nil {
		httpkit.HandleError(c, err)
		return accesscontrol.Actor{}, uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(badIDMessage))
		return accesscontrol.Actor{}, uuid.Nil, false
	}

	return accesscontrol.Actor{ID: identity.UserID(), Role: role}, id, true
}
