// Package transport defines the contact API request and response shapes.
package transport

import (
	"time"

	"github.com/google/uuid"

	"chantier_portal_backend/internal/accesscontrol"
)

type CreateContactRequest struct {
	FirstName    string `json:"firstName" binding:"required,min=1,max=100"`
	LastName     string `json:"lastName" binding:"required,min=1,max=100"`
	Company      string `json:"company" binding:"max=200"`
	Email        string `json:"email" binding:"omitempty,email"`
	Phone        string `json:"phone" binding:"required,min=6,max=20"`
	AddressLabel string `json:"addressLabel" binding:"max=500"`
}

// UpdateContactRequest is a partial update; absent fields keep their value.
type UpdateContactRequest struct {
	FirstName    *string `json:"firstName" binding:"omitempty,min=1,max=100"`
	LastName     *string `json:"lastName" binding:"omitempty,min=1,max=100"`
	Company      *string `json:"company" binding:"omitempty,max=200"`
	Email        *string `json:"email" binding:"omitempty,email"`
	Phone        *string `json:"phone" binding:"omitempty,min=6,max=20"`
	AddressLabel *string `json:"addressLabel" binding:"omitempty,max=500"`
}

type ContactResponse struct {
	ID           uuid.UUID                         `json:"id"`
	FirstName    string                            `json:"firstName"`
	LastName     string                            `json:"lastName"`
	Company      string                            `json:"company,omitempty"`
	Email        string                            `json:"email,omitempty"`
	Phone        string                            `json:"phone"`
	AddressLabel string                            `json:"addressLabel,omitempty"`
	CreatedBy    uuid.UUID                         `json:"createdBy"`
	CreatedAt    time.Time                         `json:"createdAt"`
	UpdatedAt    time.Time                         `json:"updatedAt"`
	DeletedAt    *time.Time                        `json:"deletedAt,omitempty"`
	Can          accesscontrol.ContactCapabilities `json:"can"`
}

type ContactListResponse struct {
	Items []ContactResponse `json:"items"`
	Total int               `json:"total"`
}
