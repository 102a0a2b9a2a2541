package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"chantier_portal_backend/internal/accesscontrol"
	"chantier_portal_backend/internal/chantiers/repository"
	"chantier_portal_backend/internal/chantiers/transport"
	"chantier_portal_backend/internal/events"
	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/logger"
)

type fakeStore struct {
	chantiers map[uuid.UUID]repository.Chantier
	poseurs   map[uuid.UUID][]uuid.UUID
	notes     map[uuid.UUID][]repository.Note
	purged    []time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		chantiers: make(map[uuid.UUID]repository.Chantier),
		poseurs:   make(map[uuid.UUID][]uuid.UUID),
		notes:     make(map[uuid.UUID][]repository.Note),
	}
}

func (f *fakeStore) Create(ctx context.Context, params repository.CreateParams) (repository.Chantier, error) {
	now := time.Now()
	chantier := repository.Chantier{
		ID:              uuid.New(),
		Name:            params.Name,
		Description:     params.Description,
		ClientID:        params.ClientID,
		CategoryID:      params.CategoryID,
		TypeID:          params.TypeID,
		StatusID:        params.StatusID,
		AddressLabel:    params.AddressLabel,
		AddressLat:      params.AddressLat,
		AddressLng:      params.AddressLng,
		ChargeAffaireID: params.ChargeAffaireID,
		StartDate:       params.StartDate,
		EndDate:         params.EndDate,
		CreatedBy:       params.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.chantiers[chantier.ID] = chantier
	return chantier, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (repository.Chantier, error) {
	chantier, ok := f.chantiers[id]
	if !ok || chantier.DeletedAt != nil {
		return repository.Chantier{}, apperr.NotFound("chantier not found")
	}
	return chantier, nil
}

func (f *fakeStore) List(ctx context.Context, filter repository.Filter) ([]repository.Chantier, error) {
	items := make([]repository.Chantier, 0)
	for _, c := range f.chantiers {
		if c.DeletedAt != nil {
			continue
		}
		if filter.ForChargeAffaire != nil {
			if c.ChargeAffaireID == nil || *c.ChargeAffaireID != *filter.ForChargeAffaire {
				continue
			}
		}
		if filter.ForPoseur != nil {
			assigned := false
			for _, p := range f.poseurs[c.ID] {
				if p == *filter.ForPoseur {
					assigned = true
				}
			}
			if !assigned {
				continue
			}
		}
		items = append(items, c)
	}
	return items, nil
}

func (f *fakeStore) Update(ctx context.Context, id uuid.UUID, params repository.UpdateParams) (repository.Chantier, error) {
	chantier, err := f.GetByID(ctx, id)
	if err != nil {
		return repository.Chantier{}, err
	}
	if params.Name != nil {
		chantier.Name = *params.Name
	}
	if params.Description != nil {
		chantier.Description = params.Description
	}
	if params.StatusID != nil {
		chantier.StatusID = params.StatusID
	}
	chantier.UpdatedAt = time.Now()
	f.chantiers[id] = chantier
	return chantier, nil
}

func (f *fakeStore) UpdateAddress(ctx context.Context, id uuid.UUID, label string, lat, lng *float64) (repository.Chantier, error) {
	chantier, err := f.GetByID(ctx, id)
	if err != nil {
		return repository.Chantier{}, err
	}
	chantier.AddressLabel = label
	chantier.AddressLat = lat
	chantier.AddressLng = lng
	f.chantiers[id] = chantier
	return chantier, nil
}

func (f *fakeStore) SetChargeAffaire(ctx context.Context, id uuid.UUID, chargeAffaireID *uuid.UUID) error {
	chantier, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	chantier.ChargeAffaireID = chargeAffaireID
	f.chantiers[id] = chantier
	return nil
}

func (f *fakeStore) ReplacePoseurs(ctx context.Context, id uuid.UUID, poseurIDs []uuid.UUID) error {
	f.poseurs[id] = poseurIDs
	return nil
}

func (f *fakeStore) ListPoseurs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	return f.poseurs[id], nil
}

func (f *fakeStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	chantier, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now()
	chantier.DeletedAt = &now
	f.chantiers[id] = chantier
	return nil
}

func (f *fakeStore) ListTrash(ctx context.Context) ([]repository.Chantier, error) {
	items := make([]repository.Chantier, 0)
	for _, c := range f.chantiers {
		if c.DeletedAt != nil {
			items = append(items, c)
		}
	}
	return items, nil
}

func (f *fakeStore) Restore(ctx context.Context, id uuid.UUID) (repository.Chantier, error) {
	chantier, ok := f.chantiers[id]
	if !ok || chantier.DeletedAt == nil {
		return repository.Chantier{}, apperr.NotFound("chantier not found in trash")
	}
	chantier.DeletedAt = nil
	f.chantiers[id] = chantier
	return chantier, nil
}

func (f *fakeStore) HardDelete(ctx context.Context, id uuid.UUID) error {
	chantier, ok := f.chantiers[id]
	if !ok || chantier.DeletedAt == nil {
		return apperr.NotFound("chantier not found in trash")
	}
	delete(f.chantiers, id)
	return nil
}

func (f *fakeStore) PurgeTrashBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.purged = append(f.purged, cutoff)
	var n int64
	for id, c := range f.chantiers {
		if c.DeletedAt != nil && c.DeletedAt.Before(cutoff) {
			delete(f.chantiers, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateNote(ctx context.Context, chantierID, authorID uuid.UUID, body string) (repository.Note, error) {
	note := repository.Note{ID: uuid.New(), ChantierID: chantierID, AuthorID: authorID, Body: body, CreatedAt: time.Now()}
	f.notes[chantierID] = append(f.notes[chantierID], note)
	return note, nil
}

func (f *fakeStore) ListNotes(ctx context.Context, chantierID uuid.UUID) ([]repository.Note, error) {
	return f.notes[chantierID], nil
}

func newTestService(store *fakeStore) *Service {
	log := logger.New("development")
	return New(store, events.NewInMemoryBus(log), log)
}

func actor(role accesscontrol.Role) accesscontrol.Actor {
	return accesscontrol.Actor{ID: uuid.New(), Role: role}
}

func seedChantier(store *fakeStore, chargeAffaireID *uuid.UUID, poseurIDs ...uuid.UUID) repository.Chantier {
	chantier, _ := store.Create(context.Background(), repository.CreateParams{
		Name:            "Renovation toiture",
		AddressLabel:    "12 Rue des Acacias 69003 Lyon",
		ChargeAffaireID: chargeAffaireID,
		CreatedBy:       uuid.New(),
	})
	if len(poseurIDs) > 0 {
		store.poseurs[chantier.ID] = poseurIDs
	}
	return chantier
}

func TestCreateDeniedForPoseur(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Create(context.Background(), actor(accesscontrol.RolePoseur), transport.CreateChantierRequest{Name: "Chantier"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateByChargeAffaireSelfAssigns(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ca := actor(accesscontrol.RoleChargeAffaire)

	resp, err := svc.Create(context.Background(), ca, transport.CreateChantierRequest{Name: "Extension garage"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ChargeAffaireID == nil || *resp.ChargeAffaireID != ca.ID {
		t.Fatalf("creator not self-assigned: %+v", resp.ChargeAffaireID)
	}
	if !resp.Can.CanEdit || !resp.Can.CanDelete {
		t.Errorf("assigned charge d'affaire should keep edit rights: %+v", resp.Can)
	}
}

func TestGetInvisibleReadsAsNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	other := uuid.New()
	chantier := seedChantier(store, &other)

	_, err := svc.Get(context.Background(), actor(accesscontrol.RoleChargeAffaire), chantier.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for an unassigned charge d'affaire, got %v", err)
	}

	_, err = svc.Get(context.Background(), actor(accesscontrol.RolePoseur), chantier.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for an unassigned poseur, got %v", err)
	}
}

func TestGetVisibleForAssignedPoseur(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	poseur := actor(accesscontrol.RolePoseur)
	chantier := seedChantier(store, nil, poseur.ID)

	resp, err := svc.Get(context.Background(), poseur, chantier.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Can.CanEdit || resp.Can.CanDelete || resp.Can.CanAddNote {
		t.Errorf("poseur capabilities should all be false: %+v", resp.Can)
	}
}

func TestListScopedByRole(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	ca := actor(accesscontrol.RoleChargeAffaire)
	poseur := actor(accesscontrol.RolePoseur)
	seedChantier(store, &ca.ID)
	seedChantier(store, nil, poseur.ID)
	seedChantier(store, nil)

	admin, _ := svc.List(context.Background(), actor(accesscontrol.RoleAdmin), transport.ListQuery{})
	if admin.Total != 3 {
		t.Errorf("admin should see all chantiers, got %d", admin.Total)
	}

	caList, _ := svc.List(context.Background(), ca, transport.ListQuery{})
	if caList.Total != 1 {
		t.Errorf("charge d'affaire should only see assigned chantiers, got %d", caList.Total)
	}

	poseurList, _ := svc.List(context.Background(), poseur, transport.ListQuery{})
	if poseurList.Total != 1 {
		t.Errorf("poseur should only see assigned chantiers, got %d", poseurList.Total)
	}
}

func TestUpdateDeniedForUnassignedChargeAffaire(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	other := uuid.New()
	chantier := seedChantier(store, &other)

	name := "Nouveau nom"
	_, err := svc.Update(context.Background(), actor(accesscontrol.RoleChargeAffaire), chantier.ID, transport.UpdateChantierRequest{Name: &name})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateAddressDropsUnpairedCoordinates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	chantier := seedChantier(store, nil)

	lat := 45.76
	resp, err := svc.UpdateAddress(context.Background(), actor(accesscontrol.RoleAdmin), chantier.ID, transport.UpdateAddressRequest{
		Label: "7 Rue Neuve 69001 Lyon",
		Lat:   &lat, // no matching lng
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Address.Lat != nil || resp.Address.Lng != nil {
		t.Errorf("half a coordinate pair must not be stored: %+v", resp.Address)
	}
	if resp.Address.Label != "7 Rue Neuve 69001 Lyon" {
		t.Errorf("label not stored: %q", resp.Address.Label)
	}
}

func TestAssignRequiresElevatedRole(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ca := actor(accesscontrol.RoleChargeAffaire)
	chantier := seedChantier(store, &ca.ID)

	_, err := svc.Assign(context.Background(), ca, chantier.ID, transport.AssignRequest{})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("an assigned charge d'affaire still cannot reassign, got %v", err)
	}

	target := uuid.New()
	resp, err := svc.Assign(context.Background(), actor(accesscontrol.RoleSuperviseur), chantier.ID, transport.AssignRequest{
		ChargeAffaireID: &target,
		PoseurIDs:       []uuid.UUID{uuid.New()},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ChargeAffaireID == nil || *resp.ChargeAffaireID != target {
		t.Errorf("assignment not applied: %+v", resp.ChargeAffaireID)
	}
	if len(resp.PoseurIDs) != 1 {
		t.Errorf("poseur assignment not applied: %+v", resp.PoseurIDs)
	}
}

func TestDeleteByAssignedChargeAffaire(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ca := actor(accesscontrol.RoleChargeAffaire)
	chantier := seedChantier(store, &ca.ID)

	if err := svc.Delete(context.Background(), ca, chantier.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.GetByID(context.Background(), chantier.ID); err == nil {
		t.Fatal("chantier should be in the trash")
	}

	trash, err := svc.ListTrash(context.Background(), actor(accesscontrol.RoleSuperviseur))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trash.Total != 1 {
		t.Errorf("expected 1 trashed chantier, got %d", trash.Total)
	}
}

func TestTrashDeniedForLowerRoles(t *testing.T) {
	svc := newTestService(newFakeStore())

	if _, err := svc.ListTrash(context.Background(), actor(accesscontrol.RoleChargeAffaire)); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.Purge(context.Background(), actor(accesscontrol.RolePoseur), uuid.New()); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRestoreBringsChantierBack(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	chantier := seedChantier(store, nil)
	_ = store.SoftDelete(context.Background(), chantier.ID)

	resp, err := svc.Restore(context.Background(), actor(accesscontrol.RoleAdmin), chantier.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.DeletedAt != nil {
		t.Error("restored chantier still marked deleted")
	}
	if _, err := store.GetByID(context.Background(), chantier.ID); err != nil {
		t.Errorf("restored chantier not visible: %v", err)
	}
}

func TestPurgeExpiredUsesRetentionCutoff(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	before := time.Now()
	if _, err := svc.PurgeExpired(context.Background(), 30*24*time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.purged) != 1 {
		t.Fatalf("expected one purge call, got %d", len(store.purged))
	}
	expected := before.Add(-30 * 24 * time.Hour)
	if diff := store.purged[0].Sub(expected); diff < 0 || diff > time.Minute {
		t.Errorf("cutoff not derived from retention: %v", store.purged[0])
	}
}

func TestNoteRightsFollowChantierAssignment(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	poseur := actor(accesscontrol.RolePoseur)
	chantier := seedChantier(store, nil, poseur.ID)

	// A poseur can read notes on an assigned chantier but never write them.
	if _, err := svc.AddNote(context.Background(), poseur, chantier.ID, transport.CreateNoteRequest{Body: "RAS"}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	elevated := actor(accesscontrol.RoleSuperviseur)
	if _, err := svc.AddNote(context.Background(), elevated, chantier.ID, transport.CreateNoteRequest{Body: "Livraison prévue lundi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	notes, err := svc.ListNotes(context.Background(), poseur, chantier.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notes) != 1 {
		t.Errorf("expected 1 note, got %d", len(notes))
	}
}
