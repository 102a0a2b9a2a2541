package accesscontrol

import "github.com/google/uuid"

// ChantierFacts carries the ownership metadata a chantier decision needs.
type ChantierFacts struct {
	// ChargeAffaireID is the user assigned as charge d'affaires, if any.
	ChargeAffaireID *uuid.UUID
	// PoseurIDs are the field workers assigned to the chantier.
	PoseurIDs []uuid.UUID
}

// IsAssignedChargeAffaire reports whether the user is the assigned charge d'affaires.
func (f ChantierFacts) IsAssignedChargeAffaire(userID uuid.UUID) bool {
	return f.ChargeAffaireID != nil && *f.ChargeAffaireID == userID
}

// IsAssignedPoseur reports whether the user is one of the assigned poseurs.
func (f ChantierFacts) IsAssignedPoseur(userID uuid.UUID) bool {
	for _, id := range f.PoseurIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ContactFacts carries the ownership metadata a contact decision needs.
type ContactFacts struct {
	// CreatedBy is the user who created the contact.
	CreatedBy uuid.UUID
}

// UserFacts carries the metadata a user-management decision needs.
type UserFacts struct {
	// TargetID is the user being managed.
	TargetID uuid.UUID
	// TargetRole is the role of the user being managed.
	TargetRole Role
}

// IsSelf reports whether the actor is managing their own account.
func (f UserFacts) IsSelf(actorID uuid.UUID) bool {
	return f.TargetID == actorID
}
