package accesscontrol

import (
	"testing"

	"github.com/google/uuid"
)

var (
	actorID    = uuid.New()
	otherID    = uuid.New()
	assignedCh = ChantierFacts{ChargeAffaireID: &actorID}
	foreignCh  = ChantierFacts{ChargeAffaireID: &otherID}
	poseurCh   = ChantierFacts{PoseurIDs: []uuid.UUID{actorID}}
	ownContact = ContactFacts{CreatedBy: actorID}
	foreignCt  = ContactFacts{CreatedBy: otherID}
)

func TestCanCreateChantier(t *testing.T) {
	expected := map[Role]bool{
		RoleAdmin:         true,
		RoleSuperviseur:   true,
		RoleChargeAffaire: true,
		RolePoseur:        false,
	}
	for role, want := range expected {
		if got := CanCreateChantier(role); got != want {
			t.Errorf("CanCreateChantier(%s) = %v, want %v", role, got, want)
		}
	}
}

func TestCanEditChantier(t *testing.T) {
	tests := []struct {
		name  string
		role  Role
		facts ChantierFacts
		want  bool
	}{
		{"admin any chantier", RoleAdmin, foreignCh, true},
		{"superviseur any chantier", RoleSuperviseur, foreignCh, true},
		{"charge_affaire assigned", RoleChargeAffaire, assignedCh, true},
		{"charge_affaire not assigned", RoleChargeAffaire, foreignCh, false},
		{"charge_affaire unassigned chantier", RoleChargeAffaire, ChantierFacts{}, false},
		{"poseur even when assigned", RolePoseur, poseurCh, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanEditChantier(tt.role, actorID, tt.facts); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			// Delete follows the edit rule.
			if got := CanDeleteChantier(tt.role, actorID, tt.facts); got != tt.want {
				t.Errorf("delete: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanViewChantier(t *testing.T) {
	tests := []struct {
		name  string
		role  Role
		facts ChantierFacts
		want  bool
	}{
		{"admin sees all", RoleAdmin, foreignCh, true},
		{"superviseur sees all", RoleSuperviseur, foreignCh, true},
		{"charge_affaire assigned", RoleChargeAffaire, assignedCh, true},
		{"charge_affaire not assigned", RoleChargeAffaire, foreignCh, false},
		{"poseur assigned", RolePoseur, poseurCh, true},
		{"poseur not assigned", RolePoseur, foreignCh, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanViewChantier(tt.role, actorID, tt.facts); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChantierListRestricted(t *testing.T) {
	if ChantierListRestricted(RoleAdmin) || ChantierListRestricted(RoleSuperviseur) {
		t.Error("elevated roles must not be list-restricted")
	}
	if !ChantierListRestricted(RoleChargeAffaire) || !ChantierListRestricted(RolePoseur) {
		t.Error("charge_affaire and poseur must be list-restricted")
	}
}

func TestContactRules(t *testing.T) {
	for _, role := range AllRoles() {
		if !CanViewContacts(role) {
			t.Errorf("CanViewContacts(%s) should be true for every role", role)
		}
	}

	if CanCreateContact(RolePoseur) {
		t.Error("poseur must not create contacts")
	}
	if !CanCreateContact(RoleChargeAffaire) {
		t.Error("charge_affaire must be able to create contacts")
	}

	tests := []struct {
		name  string
		role  Role
		facts ContactFacts
		want  bool
	}{
		{"admin any contact", RoleAdmin, foreignCt, true},
		{"superviseur any contact", RoleSuperviseur, foreignCt, true},
		{"charge_affaire own contact", RoleChargeAffaire, ownContact, true},
		{"charge_affaire foreign contact", RoleChargeAffaire, foreignCt, false},
		{"poseur own-anything", RolePoseur, ownContact, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanEditContact(tt.role, actorID, tt.facts); got != tt.want {
				t.Errorf("edit: got %v, want %v", got, tt.want)
			}
			if got := CanDeleteContact(tt.role, actorID, tt.facts); got != tt.want {
				t.Errorf("delete: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanManageUser(t *testing.T) {
	tests := []struct {
		actor  Role
		target Role
		want   bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleSuperviseur, true},
		{RoleAdmin, RoleChargeAffaire, true},
		{RoleAdmin, RolePoseur, true},
		{RoleSuperviseur, RoleAdmin, false},
		{RoleSuperviseur, RoleSuperviseur, false},
		{RoleSuperviseur, RoleChargeAffaire, false},
		{RoleSuperviseur, RolePoseur, true},
		{RoleChargeAffaire, RolePoseur, false},
		{RolePoseur, RolePoseur, false},
	}
	for _, tt := range tests {
		if got := CanManageUser(tt.actor, tt.target); got != tt.want {
			t.Errorf("CanManageUser(%s, %s) = %v, want %v", tt.actor, tt.target, got, tt.want)
		}
	}
}

func TestCanSuspendUser(t *testing.T) {
	tests := []struct {
		actor  Role
		target Role
		want   bool
	}{
		{RoleAdmin, RoleAdmin, false},
		{RoleAdmin, RoleSuperviseur, true},
		{RoleAdmin, RoleChargeAffaire, true},
		{RoleAdmin, RolePoseur, true},
		{RoleSuperviseur, RoleChargeAffaire, false},
		{RoleSuperviseur, RolePoseur, true},
		{RoleChargeAffaire, RolePoseur, false},
		{RolePoseur, RolePoseur, false},
	}
	for _, tt := range tests {
		facts := UserFacts{TargetID: otherID, TargetRole: tt.target}
		if got := CanSuspendUser(tt.actor, facts); got != tt.want {
			t.Errorf("CanSuspendUser(%s, %s) = %v, want %v", tt.actor, tt.target, got, tt.want)
		}
	}
}

func TestVisibleUserRoles(t *testing.T) {
	if got := VisibleUserRoles(RoleAdmin); len(got) != 4 {
		t.Errorf("admin should see all roles, got %v", got)
	}

	sup := VisibleUserRoles(RoleSuperviseur)
	if len(sup) != 2 {
		t.Fatalf("superviseur should see exactly two roles, got %v", sup)
	}
	for _, role := range sup {
		if role == RoleAdmin || role == RoleSuperviseur {
			t.Errorf("superviseur must never see %s rows", role)
		}
	}

	if VisibleUserRoles(RoleChargeAffaire) != nil || VisibleUserRoles(RolePoseur) != nil {
		t.Error("charge_affaire and poseur may not list users")
	}
}

func TestAdministrationSurfaces(t *testing.T) {
	for _, fn := range []func(Role) bool{CanAccessAdministration, CanSeeCrossUserFilters, CanSeePresence, CanPurgeTrash} {
		if !fn(RoleAdmin) || !fn(RoleSuperviseur) {
			t.Error("elevated roles must access administration surfaces")
		}
		if fn(RoleChargeAffaire) || fn(RolePoseur) {
			t.Error("non-elevated roles must not access administration surfaces")
		}
	}
}

func TestChantierNotes(t *testing.T) {
	tests := []struct {
		name  string
		role  Role
		facts ChantierFacts
		want  bool
	}{
		{"admin creates anywhere", RoleAdmin, foreignCh, true},
		{"superviseur creates anywhere", RoleSuperviseur, foreignCh, true},
		{"charge_affaire assigned creates", RoleChargeAffaire, assignedCh, true},
		{"charge_affaire unassigned view-only", RoleChargeAffaire, foreignCh, false},
		{"poseur view-only even when assigned", RolePoseur, poseurCh, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanCreateChantierNote(tt.role, actorID, tt.facts); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	// Note visibility follows chantier visibility.
	if !CanViewChantierNotes(RolePoseur, actorID, poseurCh) {
		t.Error("assigned poseur must view notes")
	}
	if CanViewChantierNotes(RolePoseur, actorID, foreignCh) {
		t.Error("unassigned poseur must not view notes")
	}
}

func TestRoleOrdering(t *testing.T) {
	order := AllRoles()
	for i := 1; i < len(order); i++ {
		if !order[i-1].AtLeast(order[i]) {
			t.Errorf("expected %s >= %s", order[i-1], order[i])
		}
		if order[i].AtLeast(order[i-1]) {
			t.Errorf("expected %s < %s", order[i], order[i-1])
		}
	}
}

func TestParseRole(t *testing.T) {
	if _, err := ParseRole("admin"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseRole("root"); err == nil {
		t.Error("expected error for unknown role")
	}
}
