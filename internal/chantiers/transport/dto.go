// Package transport defines the chantier API request and response shapes.
package transport

import (
	"time"

	"github.com/google/uuid"

	"chantier_portal_backend/internal/accesscontrol"
)

// Address is the confirmed address of a chantier. Lat and Lng are null when
// the label was entered freeform and never geocoded.
type Address struct {
	Label string   `json:"label"`
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
}

type CreateChantierRequest struct {
	Name            string      `json:"name" binding:"required,min=2,max=200"`
	Description     string      `json:"description" binding:"max=5000"`
	ClientID        *uuid.UUID  `json:"clientId"`
	CategoryID      *uuid.UUID  `json:"categoryId"`
	TypeID          *uuid.UUID  `json:"typeId"`
	StatusID        *uuid.UUID  `json:"statusId"`
	Address         Address     `json:"address"`
	ChargeAffaireID *uuid.UUID  `json:"chargeAffaireId"`
	PoseurIDs       []uuid.UUID `json:"poseurIds"`
	StartDate       *time.Time  `json:"startDate"`
	EndDate         *time.Time  `json:"endDate"`
}

// UpdateChantierRequest is a partial update; absent fields keep their value.
type UpdateChantierRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=2,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=5000"`
	ClientID    *uuid.UUID `json:"clientId"`
	CategoryID  *uuid.UUID `json:"categoryId"`
	TypeID      *uuid.UUID `json:"typeId"`
	StatusID    *uuid.UUID `json:"statusId"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

// UpdateAddressRequest stores the outcome of a confirmed address selection.
type UpdateAddressRequest struct {
	Label string   `json:"label" binding:"required,max=500"`
	Lat   *float64 `json:"lat" binding:"omitempty,min=-90,max=90"`
	Lng   *float64 `json:"lng" binding:"omitempty,min=-180,max=180"`
}

// AssignRequest replaces the chantier's assignments.
type AssignRequest struct {
	ChargeAffaireID *uuid.UUID  `json:"chargeAffaireId"`
	PoseurIDs       []uuid.UUID `json:"poseurIds"`
}

type CreateNoteRequest struct {
	Body string `json:"body" binding:"required,min=1,max=5000"`
}

// GeocodeBackfillRequest bounds one backfill batch. A zero limit lets the
// worker apply its default.
type GeocodeBackfillRequest struct {
	Limit int `json:"limit" binding:"omitempty,min=1,max=500"`
}

// ListQuery narrows the chantier list.
type ListQuery struct {
	StatusID *uuid.UUID `form:"statusId"`
	Search   string     `form:"search"`
}

type ChantierResponse struct {
	ID              uuid.UUID                            `json:"id"`
	Name            string                               `json:"name"`
	Description     string                               `json:"description,omitempty"`
	ClientID        *uuid.UUID                           `json:"clientId,omitempty"`
	CategoryID      *uuid.UUID                           `json:"categoryId,omitempty"`
	TypeID          *uuid.UUID                           `json:"typeId,omitempty"`
	StatusID        *uuid.UUID                           `json:"statusId,omitempty"`
	Address         Address                              `json:"address"`
	ChargeAffaireID *uuid.UUID                           `json:"chargeAffaireId,omitempty"`
	PoseurIDs       []uuid.UUID                          `json:"poseurIds"`
	StartDate       *time.Time                           `json:"startDate,omitempty"`
	EndDate         *time.Time                           `json:"endDate,omitempty"`
	CreatedBy       uuid.UUID                            `json:"createdBy"`
	CreatedAt       time.Time                            `json:"createdAt"`
	UpdatedAt       time.Time                            `json:"updatedAt"`
	DeletedAt       *time.Time                           `json:"deletedAt,omitempty"`
	Can             accesscontrol.ChantierCapabilities   `json:"can"`
}

type ChantierListResponse struct {
	Items []ChantierResponse `json:"items"`
	Total int                `json:"total"`
}

type NoteResponse struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  uuid.UUID `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type PurgeResponse struct {
	Purged int64 `json:"purged"`
}
