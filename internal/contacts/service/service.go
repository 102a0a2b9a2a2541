// Package service implements contact use cases with ownership-aware access
// checks.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chantier_portal_backend/internal/accesscontrol"
	"chantier_portal_backend/internal/contacts/repository"
	"chantier_portal_backend/internal/contacts/transport"
	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/logger"
	"chantier_portal_backend/platform/phone"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, params repository.CreateParams) (repository.Contact, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Contact, error)
	List(ctx context.Context, search string) ([]repository.Contact, error)
	Update(ctx context.Context, id uuid.UUID, params repository.UpdateParams) (repository.Contact, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListTrash(ctx context.Context) ([]repository.Contact, error)
	Restore(ctx context.Context, id uuid.UUID) (repository.Contact, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	PurgeTrashBefore(ctx context.Context, cutoff time.Time) (int64, error)
	FindByPhone(ctx context.Context, phone string) (repository.Contact, error)
}

type Service struct {
	store Store
	log   *logger.Logger
}

func New(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) Create(ctx context.Context, actor accesscontrol.Actor, req transport.CreateContactRequest) (transport.ContactResponse, error) {
	if !accesscontrol.CanCreateContact(actor.Role) {
		s.log.AccessDenied(string(actor.Role), "create", "contact")
		return transport.ContactResponse{}, apperr.Forbidden("role cannot create contacts")
	}

	normalized := phone.NormalizeE164(req.Phone)

	// Duplicate phones collapse onto the existing contact instead of
	// creating a second card.
	if existing, err := s.store.FindByPhone(ctx, normalized); err == nil {
		return transport.ContactResponse{}, apperr.Conflict("a contact with this phone already exists").
			WithDetails(map[string]string{"contactId": existing.ID.String()})
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return transport.ContactResponse{}, err
	}

	params := repository.CreateParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     normalized,
		CreatedBy: actor.ID,
	}
	if req.Company != "" {
		params.Company = &req.Company
	}
	if req.Email != "" {
		params.Email = &req.Email
	}
	if req.AddressLabel != "" {
		params.AddressLabel = &req.AddressLabel
	}

	contact, err := s.store.Create(ctx, params)
	if err != nil {
		return transport.ContactResponse{}, err
	}
	return toResponse(actor, contact), nil
}

func (s *Service) Get(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID) (transport.ContactResponse, error) {
	if !accesscontrol.CanViewContacts(actor.Role) {
		return transport.ContactResponse{}, apperr.Forbidden("role cannot view contacts")
	}

	contact, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.ContactResponse{}, err
	}
	return toResponse(actor, contact), nil
}

// List returns all active contacts. Contacts are shared across roles; only
// mutation rights depend on ownership.
func (s *Service) List(ctx context.Context, actor accesscontrol.Actor, search string) (transport.ContactListResponse, error) {
	if !accesscontrol.CanViewContacts(actor.Role) {
		return transport.ContactListResponse{}, apperr.Forbidden("role cannot view contacts")
	}

	items, err := s.store.List(ctx, search)
	if err != nil {
		return transport.ContactListResponse{}, err
	}

	responses := make([]transport.ContactResponse, 0, len(items))
	for _, contact := range items {
		responses = append(responses, toResponse(actor, contact))
	}
	return transport.ContactListResponse{Items: responses, Total: len(responses)}, nil
}

func (s *Service) Update(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID, req transport.UpdateContactRequest) (transport.ContactResponse, error) {
	contact, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.ContactResponse{}, err
	}

	facts := accesscontrol.ContactFacts{CreatedBy: contact.CreatedBy}
	if !accesscontrol.CanEditContact(actor.Role, actor.ID, facts) {
		s.log.AccessDenied(string(actor.Role), "edit", "contact")
		return transport.ContactResponse{}, apperr.Forbidden("role cannot edit this contact")
	}

	params := repository.UpdateParams{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Company:      req.Company,
		Email:        req.Email,
		AddressLabel: req.AddressLabel,
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164(*req.Phone)
		params.Phone = &normalized
	}

	updated, err := s.store.Update(ctx, id, params)
	if err != nil {
		return transport.ContactResponse{}, err
	}
	return toResponse(actor, updated), nil
}

func (s *Service) Delete(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID) error {
	contact, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	facts := accesscontrol.ContactFacts{CreatedBy: contact.CreatedBy}
	if !accesscontrol.CanDeleteContact(actor.Role, actor.ID, facts) {
		s.log.AccessDenied(string(actor.Role), "delete", "contact")
		return apperr.Forbidden("role cannot delete this contact")
	}

	return s.store.SoftDelete(ctx, id)
}

// =============================================================================
// Trash
// =============================================================================

func (s *Service) ListTrash(ctx context.Context, actor accesscontrol.Actor) (transport.ContactListResponse, error) {
	if !accesscontrol.CanPurgeTrash(actor.Role) {
		return transport.ContactListResponse{}, apperr.Forbidden("role cannot access the trash")
	}

	items, err := s.store.ListTrash(ctx)
	if err != nil {
		return transport.ContactListResponse{}, err
	}

	responses := make([]transport.ContactResponse, 0, len(items))
	for _, contact := range items {
		responses = append(responses, toResponse(actor, contact))
	}
	return transport.ContactListResponse{Items: responses, Total: len(responses)}, nil
}

func (s *Service) Restore(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID) (transport.ContactResponse, error) {
	if !accesscontrol.CanPurgeTrash(actor.Role) {
		return transport.ContactResponse{}, apperr.Forbidden("role cannot restore contacts")
	}

	contact, err := s.store.Restore(ctx, id)
	if err != nil {
		return transport.ContactResponse{}, err
	}
	return toResponse(actor, contact), nil
}

// Purge permanently deletes one trashed contact.
func (s *Service) Purge(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID) error {
	if !accesscontrol.CanPurgeTrash(actor.Role) {
		s.log.AccessDenied(string(actor.Role), "purge", "contact")
		return apperr.Forbidden("role cannot purge the trash")
	}
	return s.store.HardDelete(ctx, id)
}

// PurgeExpired permanently deletes trash older than the retention window.
// Called by the scheduler, which runs with no actor.
func (s *Service) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	return s.store.PurgeTrashBefore(ctx, time.Now().Add(-retention))
}

func toResponse(actor accesscontrol.Actor, contact repository.Contact) transport.ContactResponse {
	resp := transport.ContactResponse{
		ID:        contact.ID,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Phone:     contact.Phone,
		CreatedBy: contact.CreatedBy,
		CreatedAt: contact.CreatedAt,
		UpdatedAt: contact.UpdatedAt,
		DeletedAt: contact.DeletedAt,
		Can:       accesscontrol.ContactFor(actor.Role, actor.ID, accesscontrol.ContactFacts{CreatedBy: contact.CreatedBy}),
	}
	if contact.Company != nil {
		resp.Company = *contact.Company
	}
	if contact.Email != nil {
		resp.Email = *contact.Email
	}
	if contact.AddressLabel != nil {
		resp.AddressLabel = *contact.AddressLabel
	}
	return resp
}
