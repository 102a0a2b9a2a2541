package documents

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"chantier_portal_backend/internal/accesscontrol"
	chantierrepo "chantier_portal_backend/internal/chantiers/repository"
	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/logger"
)

type fakeChantiers struct {
	chantiers map[uuid.UUID]chantierrepo.Chantier
	poseurs   map[uuid.UUID][]uuid.UUID
}

func (f *fakeChantiers) GetByID(_ context.Context, id uuid.UUID) (chantierrepo.Chantier, error) {
	ch, ok := f.chantiers[id]
	if !ok {
		return chantierrepo.Chantier{}, apperr.NotFound("chantier not found")
	}
	return ch, nil
}

func (f *fakeChantiers) ListPoseurs(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	return f.poseurs[id], nil
}

type fakeStore struct {
	docs map[uuid.UUID]Document
}

func (f *fakeStore) Create(_ context.Context, doc Document) (Document, error) {
	doc.ID = uuid.New()
	doc.CreatedAt = time.Now()
	f.docs[doc.ID] = doc
	return doc, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return Document{}, apperr.NotFound("document not found")
	}
	return doc, nil
}

func (f *fakeStore) ListByChantier(_ context.Context, chantierID uuid.UUID) ([]Document, error) {
	items := make([]Document, 0)
	for _, doc := range f.docs {
		if doc.ChantierID == chantierID {
			items = append(items, doc)
		}
	}
	return items, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.docs[id]; !ok {
		return apperr.NotFound("document not found")
	}
	delete(f.docs, id)
	return nil
}

type fakeObjectStorage struct {
	deleted []string
}

func (f *fakeObjectStorage) UploadURL(_ context.Context, chantierID uuid.UUID, fileName, contentType string, sizeBytes int64) (*PresignedURL, error) {
	if !allowedContentTypes[contentType] {
		return nil, apperr.Validation("unsupported file type")
	}
	return &PresignedURL{URL: "https://storage.test/put", FileKey: chantierID.String() + "/" + fileName}, nil
}

func (f *fakeObjectStorage) DownloadURL(_ context.Context, fileKey, _ string) (*PresignedURL, error) {
	return &PresignedURL{URL: "https://storage.test/get", FileKey: fileKey}, nil
}

func (f *fakeObjectStorage) Delete(_ context.Context, fileKey string) error {
	f.deleted = append(f.deleted, fileKey)
	return nil
}

type fixture struct {
	svc        *Service
	store      *fakeStore
	storage    *fakeObjectStorage
	chantierID uuid.UUID
	caID       uuid.UUID
	poseurID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	chantierID := uuid.New()
	caID := uuid.New()
	poseurID := uuid.New()

	chantiers := &fakeChantiers{
		chantiers: map[uuid.UUID]chantierrepo.Chantier{
			chantierID: {ID: chantierID, ChargeAffaireID: &caID},
		},
		poseurs: map[uuid.UUID][]uuid.UUID{
			chantierID: {poseurID},
		},
	}
	store := &fakeStore{docs: map[uuid.UUID]Document{}}
	storage := &fakeObjectStorage{}

	return &fixture{
		svc:        NewService(store, chantiers, storage, logger.New("development")),
		store:      store,
		storage:    storage,
		chantierID: chantierID,
		caID:       caID,
		poseurID:   poseurID,
	}
}

func TestUploadRequiresEditRight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	poseur := accesscontrol.Actor{ID: f.poseurID, Role: accesscontrol.RolePoseur}
	_, err := f.svc.RequestUpload(ctx, poseur, f.chantierID, "plan.pdf", "application/pdf", 1024)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for poseur, got %v", err)
	}

	ca := accesscontrol.Actor{ID: f.caID, Role: accesscontrol.RoleChargeAffaire}
	presigned, err := f.svc.RequestUpload(ctx, ca, f.chantierID, "plan.pdf", "application/pdf", 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if presigned.URL == "" || presigned.FileKey == "" {
		t.Errorf("incomplete presigned response: %+v", presigned)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	f := newFixture(t)

	admin := accesscontrol.Actor{ID: uuid.New(), Role: accesscontrol.RoleAdmin}
	_, err := f.svc.RequestUpload(context.Background(), admin, f.chantierID, "malware.exe", "application/octet-stream", 1024)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListFollowsChantierVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ca := accesscontrol.Actor{ID: f.caID, Role: accesscontrol.RoleChargeAffaire}
	doc, err := f.svc.Register(ctx, ca, f.chantierID, "key/plan.pdf", "plan.pdf", "application/pdf", 2048)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.UploadedBy != f.caID {
		t.Errorf("uploadedBy = %s, want %s", doc.UploadedBy, f.caID)
	}

	// Assigned poseur sees the documents.
	poseur := accesscontrol.Actor{ID: f.poseurID, Role: accesscontrol.RolePoseur}
	items, err := f.svc.List(ctx, poseur, f.chantierID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 document, got %d", len(items))
	}

	// An unassigned poseur reads the chantier as absent.
	stranger := accesscontrol.Actor{ID: uuid.New(), Role: accesscontrol.RolePoseur}
	_, err = f.svc.List(ctx, stranger, f.chantierID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for unassigned poseur, got %v", err)
	}
}

func TestDownloadHiddenOutsideVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ca := accesscontrol.Actor{ID: f.caID, Role: accesscontrol.RoleChargeAffaire}
	doc, _ := f.svc.Register(ctx, ca, f.chantierID, "key/photo.jpg", "photo.jpg", "image/jpeg", 512)

	stranger := accesscontrol.Actor{ID: uuid.New(), Role: accesscontrol.RolePoseur}
	_, err := f.svc.RequestDownload(ctx, stranger, doc.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	presigned, err := f.svc.RequestDownload(ctx, ca, doc.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if presigned.FileKey != "key/photo.jpg" {
		t.Errorf("fileKey = %s", presigned.FileKey)
	}
}

func TestDeleteRemovesRowAndObject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ca := accesscontrol.Actor{ID: f.caID, Role: accesscontrol.RoleChargeAffaire}
	doc, _ := f.svc.Register(ctx, ca, f.chantierID, "key/old.pdf", "old.pdf", "application/pdf", 256)

	// Assigned poseur can see but not delete.
	poseur := accesscontrol.Actor{ID: f.poseurID, Role: accesscontrol.RolePoseur}
	if err := f.svc.Delete(ctx, poseur, doc.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for poseur, got %v", err)
	}

	if err := f.svc.Delete(ctx, ca, doc.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.store.docs) != 0 {
		t.Errorf("metadata row not removed")
	}
	if len(f.storage.deleted) != 1 || f.storage.deleted[0] != "key/old.pdf" {
		t.Errorf("object not removed: %v", f.storage.deleted)
	}
}
