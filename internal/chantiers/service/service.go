// Package service implements chantier use cases. Every operation re-evaluates
// the access decision table before touching the store; the UI capability
// blocks are sugar, not enforcement.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chantier_portal_backend/internal/accesscontrol"
	"chantier_portal_backend/internal/chantiers/repository"
	"chantier_portal_backend/internal/chantiers/transport"
	"chantier_portal_backend/internal/events"
	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/logger"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, params repository.CreateParams) (repository.Chantier, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Chantier, error)
	List(ctx context.Context, filter repository.Filter) ([]repository.Chantier, error)
	Update(ctx context.Context, id uuid.UUID, params repository.UpdateParams) (repository.Chantier, error)
	UpdateAddress(ctx context.Context, id uuid.UUID, label string, lat, lng *float64) (repository.Chantier, error)
	SetChargeAffaire(ctx context.Context, id uuid.UUID, chargeAffaireID *uuid.UUID) error
	ReplacePoseurs(ctx context.Context, id uuid.UUID, poseurIDs []uuid.UUID) error
	ListPoseurs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListTrash(ctx context.Context) ([]repository.Chantier, error)
	Restore(ctx context.Context, id uuid.UUID) (repository.Chantier, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	PurgeTrashBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CreateNote(ctx context.Context, chantierID, authorID uuid.UUID, body string) (repository.Note, error)
	ListNotes(ctx context.Context, chantierID uuid.UUID) ([]repository.Note, error)
}

type Service struct {
	store Store
	bus   events.Bus
	log   *logger.Logger
}

func New(store Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

func (s *Service) Create(ctx context.Context, actor accesscontrol.Actor, req transport.CreateChantierRequest) (transport.ChantierResponse, error) {
	if !accesscontrol.CanCreateChantier(actor.Role) {
		s.log.AccessDenied(string(actor.Role), "create", "chantier")
		return transport.ChantierResponse{}, apperr.Forbidden("role cannot create chantiers")
	}

	params := repository.CreateParams{
		Name:            req.Name,
		ClientID:        req.ClientID,
		CategoryID:      req.CategoryID,
		TypeID:          req.TypeID,
		StatusID:        req.StatusID,
		AddressLabel:    req.Address.Label,
		AddressLat:      req.Address.Lat,
		AddressLng:      req.Address.Lng,
		ChargeAffaireID: req.ChargeAffaireID,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		CreatedBy:       actor.ID,
	}
	if req.Description != "" {
		params.Description = &req.Description
	}

	// A charge d'affaire creating a chantier is assigned to it so it stays
	// visible to them afterwards.
	if actor.Role == accesscontrol.RoleChargeAffaire && params.ChargeAffaireID == nil {
		params.ChargeAffaireID = &actor.ID
	}

	chantier, err := s.store.Create(ctx, params)
	if err != nil {
		return transport.ChantierResponse{}, err
	}

	if len(req.PoseurIDs) > 0 {
		if err := s.store.ReplacePoseurs(ctx, chantier.ID, req.PoseurIDs); err != nil {
			return transport.ChantierResponse{}, err
		}
	}

	s.bus.Publish(ctx, events.ChantierCreated{
		BaseEvent:       events.NewBaseEvent(),
		ChantierID:      chantier.ID,
		Name:            chantier.Name,
		CreatedBy:       actor.ID,
		ChargeAffaireID: chantier.ChargeAffaireID,
	})

	return s.toResponse(ctx, actor, chantier)
}

func (s *Service) Get(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID) (transport.ChantierResponse, error) {
	chantier, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.ChantierResponse{}, err
	}

	facts, err := s.facts(ctx, chantier)
	if err != nil {
		return transport.ChantierResponse{}, err
	}

	if !accesscontrol.CanViewChantier(actor.Role, actor.ID, facts) {
		// Invisible rows read as absent, not forbidden.
		return transport.ChantierResponse{}, apperr.NotFound("chantier not found")
	}

	return s.toResponseWithFacts(actor, chantier, facts), nil
}

// List returns the chantiers visible to the actor. Lower roles only ever see
// rows they are assigned to, applied in the query itself.
func (s *Service) List(ctx context.Context, actor accesscontrol.Actor, query transport.ListQuery) (transport.ChantierListResponse, error) {
	filter := repository.Filter{StatusID: query.StatusID, Search: query.Search}

	if accesscontrol.ChantierListRestricted(actor.Role) {
		switch actor.Role {
		case accesscontrol.RoleChargeAffaire:
			filter.ForChargeAffaire = &actor.ID
		case accesscontrol.RolePoseur:
			filter.ForPoseur = &actor.ID
		}
	}

	items, err := s.store.List(ctx, filter)
	if err != nil {
		return transport.ChantierListResponse{}, err
	}

	responses := make([]transport.ChantierResponse, 0, len(items))
	for _, chantier := range items {
		resp, err := s.toResponse(ctx, actor, chantier)
		if err != nil {
			return transport.ChantierListResponse{}, err
		}
		responses = append(responses, resp)
	}

	return transport.ChantierListResponse{Items: responses, Total: len(responses)}, nil
}

func (s *Service) Update(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID, req transport.UpdateChantierRequest) (transport.ChantierResponse, error) {
	facts, err := s.requireEdit(ctx, actor, id)
	if err != nil {
		return transport.ChantierResponse{}, err
	}

	chantier, err := s.store.Update(ctx, id, repository.UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		ClientID:    req.ClientID,
		CategoryID:  req.CategoryID,
		TypeID:      req.TypeID,
		StatusID:    req.StatusID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		return transport.ChantierResponse{}, err
	}

	return s.toResponseWithFacts(actor, chantier, facts), nil
}

// UpdateAddress persists a confirmed address selection.
func (s *Service) UpdateAddress(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID, req transport.UpdateAddressRequest) (transport.ChantierResponse, error) {
	facts, err := s.requireEdit(ctx, actor, id)
	if err != nil {
		return transport.ChantierResponse{}, err
	}

	// Coordinates travel together or not at all.
	lat, lng := req.Lat, req.Lng
	if lat == nil || lng == nil {
		lat, lng = nil, nil
	}

	chantier, err := s.store.UpdateAddress(ctx, id, req.Label, lat, lng)
	if err != nil {
		return transport.ChantierResponse{}, err
	}

	return s.toResponseWithFacts(actor, chantier, facts), nil
}

// Assign replaces the charge d'affaire and poseur assignments. Assignment is
// an elevated operation; a charge d'affaire cannot reassign their own
// chantiers.
func (s *Service) Assign(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID, req transport.AssignRequest) (transport.ChantierResponse, error) {
	if !actor.Role.AtLeast(accesscontrol.RoleSuperviseur) {
		s.log.AccessDenied(string(actor.Role), "assign", "chantier")
		return transport.ChantierResponse{}, apperr.Forbidden("role cannot assign chantiers")
	}

	if _, err := s.store.GetByID(ctx, id); err != nil {
		return transport.ChantierResponse{}, err
	}

	if err := s.store.SetChargeAffaire(ctx, id, req.ChargeAffaireID); err != nil {
		return transport.ChantierResponse{}, err
	}
	if req.PoseurIDs != nil {
		if err := s.store.ReplacePoseurs(ctx, id, req.PoseurIDs); err != nil {
			return transport.ChantierResponse{}, err
		}
	}

	chantier, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.ChantierResponse{}, err
	}

	s.bus.Publish(ctx, events.ChantierAssigned{
		BaseEvent:       events.NewBaseEvent(),
		ChantierID:      id,
		ChargeAffaireID: req.ChargeAffaireID,
		PoseurIDs:       req.PoseurIDs,
		AssignedBy:      actor.ID,
	})

	return s.toResponse(ctx, actor, chantier)
}

// Delete moves the chantier to the trash.
func (s *Service) Delete(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID) error {
	chantier, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	facts, err := s.facts(ctx, chantier)
	if err != nil {
		return err
	}

	if !accesscontrol.CanDeleteChantier(actor.Role, actor.ID, facts) {
		s.log.AccessDenied(string(actor.Role), "delete", "chantier")
		return apperr.Forbidden("role cannot delete this chantier")
	}

	if err := s.store.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.ChantierTrashed{
		BaseEvent:  events.NewBaseEvent(),
		ChantierID: id,
		DeletedBy:  actor.ID,
	})

	return nil
}

// =============================================================================
// Trash
// =============================================================================

func (s *Service) ListTrash(ctx context.Context, actor accesscontrol.Actor) (transport.ChantierListResponse, error) {
	if !accesscontrol.CanPurgeTrash(actor.Role) {
		return transport.ChantierListResponse{}, apperr.Forbidden("role cannot access the trash")
	}

	items, err := s.store.ListTrash(ctx)
	if err != nil {
		return transport.ChantierListResponse{}, err
	}

	responses := make([]transport.ChantierResponse, 0, len(items))
	for _, chantier := range items {
		resp, err := s.toResponse(ctx, actor, chantier)
		if err != nil {
			return transport.ChantierListResponse{}, err
		}
		responses = append(responses, resp)
	}

	return transport.ChantierListResponse{Items: responses, Total: len(responses)}, nil
}

func (s *Service) Restore(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID) (transport.ChantierResponse, error) {
	if !accesscontrol.CanPurgeTrash(actor.Role) {
		return transport.ChantierResponse{}, apperr.Forbidden("role cannot restore chantiers")
	}

	chantier, err := s.store.Restore(ctx, id)
	if err != nil {
		return transport.ChantierResponse{}, err
	}

	s.bus.Publish(ctx, events.ChantierRestored{
		BaseEvent:  events.NewBaseEvent(),
		ChantierID: id,
		RestoredBy: actor.ID,
	})

	return s.toResponse(ctx, actor, chantier)
}

// Purge permanently deletes one trashed chantier.
func (s *Service) Purge(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID) error {
	if !accesscontrol.CanPurgeTrash(actor.Role) {
		s.log.AccessDenied(string(actor.Role), "purge", "chantier")
		return apperr.Forbidden("role cannot purge the trash")
	}
	return s.store.HardDelete(ctx, id)
}

// PurgeExpired permanently deletes trash older than the retention window.
// Called by the scheduler, which runs with no actor.
func (s *Service) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	return s.store.PurgeTrashBefore(ctx, time.Now().Add(-retention))
}

// =============================================================================
// Notes
// =============================================================================

func (s *Service) AddNote(ctx context.Context, actor accesscontrol.Actor, chantierID uuid.UUID, req transport.CreateNoteRequest) (transport.NoteResponse, error) {
	chantier, err := s.store.GetByID(ctx, chantierID)
	if err != nil {
		return transport.NoteResponse{}, err
	}

	facts, err := s.facts(ctx, chantier)
	if err != nil {
		return transport.NoteResponse{}, err
	}

	if !accesscontrol.CanCreateChantierNote(actor.Role, actor.ID, facts) {
		s.log.AccessDenied(string(actor.Role), "add_note", "chantier")
		return transport.NoteResponse{}, apperr.Forbidden("role cannot add notes to this chantier")
	}

	note, err := s.store.CreateNote(ctx, chantierID, actor.ID, req.Body)
	if err != nil {
		return transport.NoteResponse{}, err
	}

	s.bus.Publish(ctx, events.ChantierNoteAdded{
		BaseEvent:  events.NewBaseEvent(),
		ChantierID: chantierID,
		NoteID:     note.ID,
		AuthorID:   actor.ID,
	})

	return toNoteResponse(note), nil
}

func (s *Service) ListNotes(ctx context.Context, actor accesscontrol.Actor, chantierID uuid.UUID) ([]transport.NoteResponse, error) {
	chantier, err := s.store.GetByID(ctx, chantierID)
	if err != nil {
		return nil, err
	}

	facts, err := s.facts(ctx, chantier)
	if err != nil {
		return nil, err
	}

	if !accesscontrol.CanViewChantierNotes(actor.Role, actor.ID, facts) {
		return nil, apperr.NotFound("chantier not found")
	}

	notes, err := s.store.ListNotes(ctx, chantierID)
	if err != nil {
		return nil, err
	}

	responses := make([]transport.NoteResponse, 0, len(notes))
	for _, note := range notes {
		responses = append(responses, toNoteResponse(note))
	}
	return responses, nil
}

// =============================================================================
// Helpers
// =============================================================================

// requireEdit loads the facts and enforces the edit decision.
func (s *Service) requireEdit(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID) (accesscontrol.ChantierFacts, error) {
	chantier, err := s.store.GetByID(ctx, id)
	if err != nil {
		return accesscontrol.ChantierFacts{}, err
	}

	facts, err := s.facts(ctx, chantier)
	if err != nil {
		return accesscontrol.ChantierFacts{}, err
	}

	if !accesscontrol.CanEditChantier(actor.Role, actor.ID, facts) {
		s.log.AccessDenied(string(actor.Role), "edit", "chantier")
		return accesscontrol.ChantierFacts{}, apperr.Forbidden("role cannot edit this chantier")
	}

	return facts, nil
}

func (s *Service) facts(ctx context.Context, chantier repository.Chantier) (accesscontrol.ChantierFacts, error) {
	poseurs, err := s.store.ListPoseurs(ctx, chantier.ID)
	if err != nil {
		return accesscontrol.ChantierFacts{}, err
	}
	return accesscontrol.ChantierFacts{
		ChargeAffaireID: chantier.ChargeAffaireID,
		PoseurIDs:       poseurs,
	}, nil
}

func (s *Service) toResponse(ctx context.Context, actor accesscontrol.Actor, chantier repository.Chantier) (transport.ChantierResponse, error) {
	facts, err := s.facts(ctx, chantier)
	if err != nil {
		return transport.ChantierResponse{}, err
	}
	return s.toResponseWithFacts(actor, chantier, facts), nil
}

func (s *Service) toResponseWithFacts(actor accesscontrol.Actor, chantier repository.Chantier, facts accesscontrol.ChantierFacts) transport.ChantierResponse {
	resp := transport.ChantierResponse{
		ID:              chantier.ID,
		Name:            chantier.Name,
		ClientID:        chantier.ClientID,
		CategoryID:      chantier.CategoryID,
		TypeID:          chantier.TypeID,
		StatusID:        chantier.StatusID,
		Address:         transport.Address{Label: chantier.AddressLabel, Lat: chantier.AddressLat, Lng: chantier.AddressLng},
		ChargeAffaireID: chantier.ChargeAffaireID,
		PoseurIDs:       facts.PoseurIDs,
		StartDate:       chantier.StartDate,
		EndDate:         chantier.EndDate,
		CreatedBy:       chantier.CreatedBy,
		CreatedAt:       chantier.CreatedAt,
		UpdatedAt:       chantier.UpdatedAt,
		DeletedAt:       chantier.DeletedAt,
		Can:             accesscontrol.ChantierFor(actor.Role, actor.ID, facts),
	}
	if chantier.Description != nil {
		resp.Description = *chantier.Description
	}
	if resp.PoseurIDs == nil {
		resp.PoseurIDs = []uuid.UUID{}
	}
	return resp
}

func toNoteResponse(note repository.Note) transport.NoteResponse {
	return transport.NoteResponse{
		ID:        note.ID,
		AuthorID:  note.AuthorID,
		Body:      note.Body,
		CreatedAt: note.CreatedAt,
	}
}
