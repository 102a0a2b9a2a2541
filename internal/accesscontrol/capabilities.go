package accesscontrol

import "github.com/google/uuid"

// Capabilities blocks are served to the frontend so it can hide affordances
// the decision table denies. Hiding is UI sugar only; every mutating handler
// re-evaluates the same functions before acting.

// GlobalCapabilities are the caller's entity-independent permissions.
type GlobalCapabilities struct {
	CanCreateChantier       bool `json:"canCreateChantier"`
	CanCreateContact        bool `json:"canCreateContact"`
	CanManageUsers          bool `json:"canManageUsers"`
	CanAccessAdministration bool `json:"canAccessAdministration"`
	CanSeeCrossUserFilters  bool `json:"canSeeCrossUserFilters"`
	CanSeePresence          bool `json:"canSeePresence"`
	CanPurgeTrash           bool `json:"canPurgeTrash"`
}

// GlobalFor computes the caller's global capability block.
func GlobalFor(role Role) GlobalCapabilities {
	return GlobalCapabilities{
		CanCreateChantier:       CanCreateChantier(role),
		CanCreateContact:        CanCreateContact(role),
		CanManageUsers:          VisibleUserRoles(role) != nil,
		CanAccessAdministration: CanAccessAdministration(role),
		CanSeeCrossUserFilters:  CanSeeCrossUserFilters(role),
		CanSeePresence:          CanSeePresence(role),
		CanPurgeTrash:           CanPurgeTrash(role),
	}
}

// ChantierCapabilities are the caller's permissions on one chantier row.
type ChantierCapabilities struct {
	CanEdit    bool `json:"canEdit"`
	CanDelete  bool `json:"canDelete"`
	CanAddNote bool `json:"canAddNote"`
}

// ChantierFor computes the caller's capability block for one chantier.
func ChantierFor(role Role, actorID uuid.UUID, facts ChantierFacts) ChantierCapabilities {
	return ChantierCapabilities{
		CanEdit:    CanEditChantier(role, actorID, facts),
		CanDelete:  CanDeleteChantier(role, actorID, facts),
		CanAddNote: CanCreateChantierNote(role, actorID, facts),
	}
}

// ContactCapabilities are the caller's permissions on one contact row.
type ContactCapabilities struct {
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
}

// ContactFor computes the caller's capability block for one contact.
func ContactFor(role Role, actorID uuid.UUID, facts ContactFacts) ContactCapabilities {
	return ContactCapabilities{
		CanEdit:   CanEditContact(role, actorID, facts),
		CanDelete: CanDeleteContact(role, actorID, facts),
	}
}

// UserCapabilities are the caller's permissions on one user row.
type UserCapabilities struct {
	CanEdit    bool `json:"canEdit"`
	CanDelete  bool `json:"canDelete"`
	CanSuspend bool `json:"canSuspend"`
}

// UserFor computes the caller's capability block for one managed user.
func UserFor(actor Role, facts UserFacts) UserCapabilities {
	return UserCapabilities{
		CanEdit:    CanManageUser(actor, facts.TargetRole),
		CanDelete:  CanManageUser(actor, facts.TargetRole),
		CanSuspend: CanSuspendUser(actor, facts),
	}
}
