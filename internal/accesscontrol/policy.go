package accesscontrol

import "github.com/google/uuid"

// elevated reports whether the role may act on any row of the gated tables.
func elevated(role Role) bool {
	return role == RoleAdmin || role == RoleSuperviseur
}

// =============================================================================
// Chantiers
// =============================================================================

// CanCreateChantier reports whether the role may create chantiers.
func CanCreateChantier(role Role) bool {
	return elevated(role) || role == RoleChargeAffaire
}

// CanEditChantier reports whether the actor may edit the chantier.
// A charge d'affaires may only edit chantiers they are assigned to.
func CanEditChantier(role Role, actorID uuid.UUID, facts ChantierFacts) bool {
	if elevated(role) {
		return true
	}
	if role == RoleChargeAffaire {
		return facts.IsAssignedChargeAffaire(actorID)
	}
	return false
}

// CanDeleteChantier reports whether the actor may soft-delete the chantier.
// Same rule as editing.
func CanDeleteChantier(role Role, actorID uuid.UUID, facts ChantierFacts) bool {
	return CanEditChantier(role, actorID, facts)
}

// CanViewChantier reports whether the actor may view the chantier.
// Charge d'affaires and poseurs only see chantiers they are assigned to.
func CanViewChantier(role Role, actorID uuid.UUID, facts ChantierFacts) bool {
	switch role {
	case RoleAdmin, RoleSuperviseur:
		return true
	case RoleChargeAffaire:
		return facts.IsAssignedChargeAffaire(actorID)
	case RolePoseur:
		return facts.IsAssignedPoseur(actorID)
	}
	return false
}

// ChantierListRestricted reports whether chantier list queries must be scoped
// to the actor's assignments.
func ChantierListRestricted(role Role) bool {
	return !elevated(role)
}

// CanPurgeTrash reports whether the actor may permanently delete trashed rows.
func CanPurgeTrash(role Role) bool {
	return elevated(role)
}

// =============================================================================
// Chantier notes
// =============================================================================

// CanCreateChantierNote reports whether the actor may add a note.
// Admin and superviseur always can; a charge d'affaires only on chantiers
// they are assigned to; poseurs are view-only.
func CanCreateChantierNote(role Role, actorID uuid.UUID, facts ChantierFacts) bool {
	if elevated(role) {
		return true
	}
	if role == RoleChargeAffaire {
		return facts.IsAssignedChargeAffaire(actorID)
	}
	return false
}

// CanViewChantierNotes follows chantier visibility.
func CanViewChantierNotes(role Role, actorID uuid.UUID, facts ChantierFacts) bool {
	return CanViewChantier(role, actorID, facts)
}

// =============================================================================
// Contacts
// =============================================================================

// CanCreateContact reports whether the role may create contacts.
func CanCreateContact(role Role) bool {
	return elevated(role) || role == RoleChargeAffaire
}

// CanEditContact reports whether the actor may edit the contact.
// A charge d'affaires may only edit contacts they created.
func CanEditContact(role Role, actorID uuid.UUID, facts ContactFacts) bool {
	if elevated(role) {
		return true
	}
	if role == RoleChargeAffaire {
		return facts.CreatedBy == actorID
	}
	return false
}

// CanDeleteContact follows the edit rule.
func CanDeleteContact(role Role, actorID uuid.UUID, facts ContactFacts) bool {
	return CanEditContact(role, actorID, facts)
}

// CanViewContacts reports whether the role may list contacts.
// Every role can; poseur is read-only, which the mutation rules enforce.
func CanViewContacts(role Role) bool {
	return role.Valid()
}

// =============================================================================
// Users
// =============================================================================

// CanManageUser reports whether the actor may create, edit or delete a user
// with the target role. Admin manages any role; superviseur only poseurs.
func CanManageUser(actor Role, target Role) bool {
	switch actor {
	case RoleAdmin:
		return true
	case RoleSuperviseur:
		return target == RolePoseur
	}
	return false
}

// CanSuspendUser reports whether the actor may suspend or reactivate the
// target. Admins cannot suspend other admins.
func CanSuspendUser(actor Role, facts UserFacts) bool {
	switch actor {
	case RoleAdmin:
		return facts.TargetRole != RoleAdmin
	case RoleSuperviseur:
		return facts.TargetRole == RolePoseur
	}
	return false
}

// VisibleUserRoles returns the roles whose rows the actor may see in user
// lists. This is a defense-in-depth filter applied on top of whatever the
// repository returns; nil means the actor may not list users at all.
func VisibleUserRoles(actor Role) []Role {
	switch actor {
	case RoleAdmin:
		return AllRoles()
	case RoleSuperviseur:
		return []Role{RoleChargeAffaire, RolePoseur}
	}
	return nil
}

// =============================================================================
// Dashboard and administration surfaces
// =============================================================================

// CanAccessAdministration gates the administration area.
func CanAccessAdministration(role Role) bool {
	return elevated(role)
}

// CanSeeCrossUserFilters gates the dashboard cross-user filter dropdowns.
func CanSeeCrossUserFilters(role Role) bool {
	return elevated(role)
}

// CanSeePresence gates the "online users" panel.
func CanSeePresence(role Role) bool {
	return elevated(role)
}
