package documents

import (
	"context"

	"github.com/google/uuid"

	"chantier_portal_backend/internal/accesscontrol"
	chantierrepo "chantier_portal_backend/internal/chantiers/repository"
	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/logger"
)

// ChantierStore is the slice of the chantiers repository the document rules
// need: visibility and edit rights follow the chantier the file hangs on.
type ChantierStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (chantierrepo.Chantier, error)
	ListPoseurs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

// Store persists document metadata.
type Store interface {
	Create(ctx context.Context, doc Document) (Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (Document, error)
	ListByChantier(ctx context.Context, chantierID uuid.UUID) ([]Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ObjectStorage hands out presigned links and removes stored objects.
type ObjectStorage interface {
	UploadURL(ctx context.Context, chantierID uuid.UUID, fileName, contentType string, sizeBytes int64) (*PresignedURL, error)
	DownloadURL(ctx context.Context, fileKey, fileName string) (*PresignedURL, error)
	Delete(ctx context.Context, fileKey string) error
}

type Service struct {
	store     Store
	chantiers ChantierStore
	storage   ObjectStorage
	log       *logger.Logger
}

func NewService(store Store, chantiers ChantierStore, storage ObjectStorage, log *logger.Logger) *Service {
	return &Service{store: store, chantiers: chantiers, storage: storage, log: log}
}

func (s *Service) chantierFacts(ctx context.Context, chantierID uuid.UUID) (accesscontrol.ChantierFacts, error) {
	chantier, err := s.chantiers.GetByID(ctx, chantierID)
	if err != nil {
		return accesscontrol.ChantierFacts{}, err
	}
	poseurs, err := s.chantiers.ListPoseurs(ctx, chantierID)
	if err != nil {
		return accesscontrol.ChantierFacts{}, err
	}
	return accesscontrol.ChantierFacts{ChargeAffaireID: chantier.ChargeAffaireID, PoseurIDs: poseurs}, nil
}

// RequestUpload validates the file and hands back a presigned PUT URL. The
// caller uploads directly to object storage, then registers the metadata.
func (s *Service) RequestUpload(ctx context.Context, actor accesscontrol.Actor, chantierID uuid.UUID, fileName, contentType string, sizeBytes int64) (*PresignedURL, error) {
	facts, err := s.chantierFacts(ctx, chantierID)
	if err != nil {
		return nil, err
	}
	if !accesscontrol.CanEditChantier(actor.Role, actor.ID, facts) {
		return nil, apperr.Forbidden("you cannot add documents to this chantier")
	}

	return s.storage.UploadURL(ctx, chantierID, fileName, contentType, sizeBytes)
}

// Register records the metadata of a file the client finished uploading.
func (s *Service) Register(ctx context.Context, actor accesscontrol.Actor, chantierID uuid.UUID, fileKey, fileName, contentType string, sizeBytes int64) (Document, error) {
	facts, err := s.chantierFacts(ctx, chantierID)
	if err != nil {
		return Document{}, err
	}
	if !accesscontrol.CanEditChantier(actor.Role, actor.ID, facts) {
		return Document{}, apperr.Forbidden("you cannot add documents to this chantier")
	}

	doc, err := s.store.Create(ctx, Document{
		ChantierID:  chantierID,
		FileName:    fileName,
		FileKey:     fileKey,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		UploadedBy:  actor.ID,
	})
	if err != nil {
		return Document{}, err
	}

	s.log.Info("document registered",
		"document_id", doc.ID,
		"chantier_id", chantierID,
		"file_name", fileName,
	)
	return doc, nil
}

// List returns the chantier's documents. Visibility follows the chantier;
// a chantier the actor may not see reads as absent.
func (s *Service) List(ctx context.Context, actor accesscontrol.Actor, chantierID uuid.UUID) ([]Document, error) {
	facts, err := s.chantierFacts(ctx, chantierID)
	if err != nil {
		return nil, err
	}
	if !accesscontrol.CanViewChantier(actor.Role, actor.ID, facts) {
		return nil, apperr.NotFound("chantier not found")
	}

	return s.store.ListByChantier(ctx, chantierID)
}

// RequestDownload returns a presigned GET URL for a document the actor may see.
func (s *Service) RequestDownload(ctx context.Context, actor accesscontrol.Actor, documentID uuid.UUID) (*PresignedURL, error) {
	doc, err := s.store.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	facts, err := s.chantierFacts(ctx, doc.ChantierID)
	if err != nil {
		return nil, err
	}
	if !accesscontrol.CanViewChantier(actor.Role, actor.ID, facts) {
		return nil, apperr.NotFound("document not found")
	}

	return s.storage.DownloadURL(ctx, doc.FileKey, doc.FileName)
}

// Delete removes the metadata row and the stored object. A failed object
// deletion only logs: the row is gone and the orphan is harmless.
func (s *Service) Delete(ctx context.Context, actor accesscontrol.Actor, documentID uuid.UUID) error {
	doc, err := s.store.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	facts, err := s.chantierFacts(ctx, doc.ChantierID)
	if err != nil {
		return err
	}
	if !accesscontrol.CanViewChantier(actor.Role, actor.ID, facts) {
		return apperr.NotFound("document not found")
	}
	if !accesscontrol.CanEditChantier(actor.Role, actor.ID, facts) {
		return apperr.Forbidden("you cannot delete documents on this chantier")
	}

	if err := s.store.Delete(ctx, documentID); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, doc.FileKey); err != nil {
		s.log.Warn("orphaned object after document delete", "file_key", doc.FileKey, "error", err)
	}
	return nil
}
