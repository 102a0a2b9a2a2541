// Package transport defines the user and auth API request and response
// shapes.
package transport

import (
	"time"

	"github.com/google/uuid"

	"chantier_portal_backend/internal/accesscontrol"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresIn   int64        `json:"expiresIn"`
	User        UserResponse `json:"user"`
}

// MeResponse carries the caller's profile and global capability block; the
// frontend derives every hidden affordance from it.
type MeResponse struct {
	User UserResponse                     `json:"user"`
	Can  accesscontrol.GlobalCapabilities `json:"can"`
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"fullName" binding:"required,min=2,max=200"`
	Role     string `json:"role" binding:"required"`
	Phone    string `json:"phone" binding:"omitempty,min=6,max=20"`
}

// UpdateUserRequest is a partial update; absent fields keep their value.
type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	FullName *string `json:"fullName" binding:"omitempty,min=2,max=200"`
	Role     *string `json:"role"`
	Phone    *string `json:"phone" binding:"omitempty,min=6,max=20"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=128"`
}

type UserResponse struct {
	ID          uuid.UUID                      `json:"id"`
	Email       string                         `json:"email"`
	FullName    string                         `json:"fullName"`
	Role        string                         `json:"role"`
	Phone       string                         `json:"phone,omitempty"`
	SuspendedAt *time.Time                     `json:"suspendedAt,omitempty"`
	CreatedAt   time.Time                      `json:"createdAt"`
	Can         accesscontrol.UserCapabilities `json:"can"`
}

type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Total int            `json:"total"`
}
