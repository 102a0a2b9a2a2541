// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"github.com/google/uuid"

	"chantier_portal_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Chantier Domain Events
// =============================================================================

// ChantierCreated is published when a new chantier is created.
type ChantierCreated struct {
	BaseEvent
	ChantierID      uuid.UUID  `json:"chantierId"`
	Name            string     `json:"name"`
	CreatedBy       uuid.UUID  `json:"createdBy"`
	ChargeAffaireID *uuid.UUID `json:"chargeAffaireId,omitempty"`
}

func (e ChantierCreated) EventName() string { return "chantiers.chantier.created" }

// ChantierAssigned is published when the charge d'affaire or poseur
// assignments of a chantier change.
type ChantierAssigned struct {
	BaseEvent
	ChantierID      uuid.UUID   `json:"chantierId"`
	ChargeAffaireID *uuid.UUID  `json:"chargeAffaireId,omitempty"`
	PoseurIDs       []uuid.UUID `json:"poseurIds,omitempty"`
	AssignedBy      uuid.UUID   `json:"assignedBy"`
}

func (e ChantierAssigned) EventName() string { return "chantiers.chantier.assigned" }

// ChantierTrashed is published when a chantier is soft deleted.
type ChantierTrashed struct {
	BaseEvent
	ChantierID uuid.UUID `json:"chantierId"`
	DeletedBy  uuid.UUID `json:"deletedBy"`
}

func (e ChantierTrashed) EventName() string { return "chantiers.chantier.trashed" }

// ChantierRestored is published when a chantier leaves the trash.
type ChantierRestored struct {
	BaseEvent
	ChantierID uuid.UUID `json:"chantierId"`
	RestoredBy uuid.UUID `json:"restoredBy"`
}

func (e ChantierRestored) EventName() string { return "chantiers.chantier.restored" }

// ChantierNoteAdded is published when a note is appended to a chantier.
type ChantierNoteAdded struct {
	BaseEvent
	ChantierID uuid.UUID `json:"chantierId"`
	NoteID     uuid.UUID `json:"noteId"`
	AuthorID   uuid.UUID `json:"authorId"`
}

func (e ChantierNoteAdded) EventName() string { return "chantiers.note.added" }

// =============================================================================
// User Domain Events
// =============================================================================

// UserCreated is published when an account is provisioned. The welcome email
// with the initial password flows from this event.
type UserCreated struct {
	BaseEvent
	UserID          uuid.UUID `json:"userId"`
	Email           string    `json:"email"`
	FullName        string    `json:"fullName"`
	Role            string    `json:"role"`
	InitialPassword string    `json:"-"`
	CreatedBy       uuid.UUID `json:"createdBy"`
}

func (e UserCreated) EventName() string { return "users.user.created" }

// UserSuspended is published when an account is suspended.
type UserSuspended struct {
	BaseEvent
	UserID      uuid.UUID `json:"userId"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	SuspendedBy uuid.UUID `json:"suspendedBy"`
}

func (e UserSuspended) EventName() string { return "users.user.suspended" }

// UserReactivated is published when a suspended account is reactivated.
type UserReactivated struct {
	BaseEvent
	UserID        uuid.UUID `json:"userId"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	ReactivatedBy uuid.UUID `json:"reactivatedBy"`
}

func (e UserReactivated) EventName() string { return "users.user.reactivated" }
