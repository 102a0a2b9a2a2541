package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"chantier_portal_backend/internal/accesscontrol"
	"chantier_portal_backend/internal/events"
	"chantier_portal_backend/internal/users/repository"
	"chantier_portal_backend/internal/users/transport"
	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/logger"
)

type fakeStore struct {
	users map[uuid.UUID]repository.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[uuid.UUID]repository.User)}
}

func (f *fakeStore) Create(ctx context.Context, params repository.CreateParams) (repository.User, error) {
	now := time.Now()
	user := repository.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(params.Email),
		FullName:     params.FullName,
		Role:         params.Role,
		PasswordHash: params.PasswordHash,
		Phone:        params.Phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (repository.User, error) {
	user, ok := f.users[id]
	if !ok {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return user, nil
}

func (f *fakeStore) GetByEmail(ctx context.Context, email string) (repository.User, error) {
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return repository.User{}, apperr.NotFound("user not found")
}

func (f *fakeStore) ListByRoles(ctx context.Context, roles []string) ([]repository.User, error) {
	items := make([]repository.User, 0)
	for _, u := range f.users {
		for _, role := range roles {
			if u.Role == role {
				items = append(items, u)
			}
		}
	}
	return items, nil
}

func (f *fakeStore) Update(ctx context.Context, id uuid.UUID, params repository.UpdateParams) (repository.User, error) {
	user, err := f.GetByID(ctx, id)
	if err != nil {
		return repository.User{}, err
	}
	if params.Email != nil {
		user.Email = strings.ToLower(*params.Email)
	}
	if params.FullName != nil {
		user.FullName = *params.FullName
	}
	if params.Role != nil {
		user.Role = *params.Role
	}
	f.users[id] = user
	return user, nil
}

func (f *fakeStore) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	user, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	f.users[id] = user
	return nil
}

func (f *fakeStore) Suspend(ctx context.Context, id uuid.UUID) (repository.User, error) {
	user, err := f.GetByID(ctx, id)
	if err != nil {
		return repository.User{}, err
	}
	now := time.Now()
	user.SuspendedAt = &now
	f.users[id] = user
	return user, nil
}

func (f *fakeStore) Reactivate(ctx context.Context, id uuid.UUID) (repository.User, error) {
	user, err := f.GetByID(ctx, id)
	if err != nil {
		return repository.User{}, err
	}
	user.SuspendedAt = nil
	f.users[id] = user
	return user, nil
}

// unfilteredStore returns every row from ListByRoles regardless of the roles
// argument, standing in for a store whose query filter went wrong.
type unfilteredStore struct {
	*fakeStore
}

func (f *unfilteredStore) ListByRoles(ctx context.Context, roles []string) ([]repository.User, error) {
	items := make([]repository.User, 0, len(f.users))
	for _, u := range f.users {
		items = append(items, u)
	}
	return items, nil
}

type testJWTConfig struct{}

func (testJWTConfig) GetJWTAccessSecret() string { return "test-secret-at-least-32-characters" }

func newTestService(store *fakeStore) *Service {
	log := logger.New("development")
	return New(store, testJWTConfig{}, events.NewInMemoryBus(log), log)
}

func actor(role accesscontrol.Role) accesscontrol.Actor {
	return accesscontrol.Actor{ID: uuid.New(), Role: role}
}

func seedUser(store *fakeStore, role accesscontrol.Role, password string) repository.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user, _ := store.Create(context.Background(), repository.CreateParams{
		Email:        uuid.NewString() + "@example.fr",
		FullName:     "Test User",
		Role:         string(role),
		PasswordHash: string(hash),
	})
	return user
}

func TestLogin(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	user := seedUser(store, accesscontrol.RoleChargeAffaire, "correct-horse")

	resp, err := svc.Login(context.Background(), transport.LoginRequest{Email: user.Email, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("expected a token")
	}
	if resp.User.Role != string(accesscontrol.RoleChargeAffaire) {
		t.Errorf("unexpected role %q", resp.User.Role)
	}

	if _, err := svc.Login(context.Background(), transport.LoginRequest{Email: user.Email, Password: "wrong"}); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized for a wrong password, got %v", err)
	}
	if _, err := svc.Login(context.Background(), transport.LoginRequest{Email: "nobody@example.fr", Password: "whatever1"}); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("unknown email must answer like a wrong password, got %v", err)
	}
}

func TestLoginDeniedWhileSuspended(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	user := seedUser(store, accesscontrol.RolePoseur, "correct-horse")
	_, _ = store.Suspend(context.Background(), user.ID)

	if _, err := svc.Login(context.Background(), transport.LoginRequest{Email: user.Email, Password: "correct-horse"}); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized for a suspended account, got %v", err)
	}
}

func TestCreateRoleAuthority(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	// A superviseur may only provision poseur accounts.
	superviseur := actor(accesscontrol.RoleSuperviseur)
	if _, err := svc.Create(context.Background(), superviseur, transport.CreateUserRequest{
		Email: "p@example.fr", FullName: "Nouveau Poseur", Role: "poseur",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, denied := range []string{"admin", "superviseur", "charge_affaire"} {
		if _, err := svc.Create(context.Background(), superviseur, transport.CreateUserRequest{
			Email: "x@example.fr", FullName: "Autre", Role: denied,
		}); !apperr.Is(err, apperr.KindForbidden) {
			t.Errorf("superviseur creating %s: expected forbidden, got %v", denied, err)
		}
	}

	// Admin provisions anything.
	if _, err := svc.Create(context.Background(), actor(accesscontrol.RoleAdmin), transport.CreateUserRequest{
		Email: "s@example.fr", FullName: "Nouvelle Superviseure", Role: "superviseur",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreatePublishesInitialPassword(t *testing.T) {
	store := newFakeStore()
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	svc := New(store, testJWTConfig{}, bus, log)

	var got events.UserCreated
	bus.Subscribe(events.UserCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		got = e.(events.UserCreated)
		return nil
	}))

	resp, err := svc.Create(context.Background(), actor(accesscontrol.RoleAdmin), transport.CreateUserRequest{
		Email: "new@example.fr", FullName: "Compte Neuf", Role: "poseur",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The bus delivers asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for got.UserID == uuid.Nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if got.UserID != resp.ID {
		t.Fatal("UserCreated event not delivered")
	}
	if got.InitialPassword == "" {
		t.Error("initial password missing from the event")
	}

	// The generated password actually authenticates.
	if _, err := svc.Login(context.Background(), transport.LoginRequest{Email: "new@example.fr", Password: got.InitialPassword}); err != nil {
		t.Errorf("initial password rejected: %v", err)
	}
}

func TestListFiltersRowsForSuperviseur(t *testing.T) {
	store := newFakeStore()
	// The service must enforce the visibility window on its own, even when
	// the store hands back rows the roles filter should have excluded.
	log := logger.New("development")
	svc := New(&unfilteredStore{fakeStore: store}, testJWTConfig{}, events.NewInMemoryBus(log), log)
	seedUser(store, accesscontrol.RoleAdmin, "pw")
	seedUser(store, accesscontrol.RoleSuperviseur, "pw")
	seedUser(store, accesscontrol.RoleChargeAffaire, "pw")
	seedUser(store, accesscontrol.RolePoseur, "pw")

	resp, err := svc.List(context.Background(), actor(accesscontrol.RoleSuperviseur))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("superviseur should see 2 rows, got %d", resp.Total)
	}
	for _, row := range resp.Items {
		if row.Role == "admin" || row.Role == "superviseur" {
			t.Errorf("admin/superviseur row leaked to superviseur: %s", row.Role)
		}
	}

	adminList, _ := svc.List(context.Background(), actor(accesscontrol.RoleAdmin))
	if adminList.Total != 4 {
		t.Errorf("admin should see all 4 rows, got %d", adminList.Total)
	}

	if _, err := svc.List(context.Background(), actor(accesscontrol.RolePoseur)); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for poseur, got %v", err)
	}
}

func TestGetOutsideVisibilityReadsAsNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	admin := seedUser(store, accesscontrol.RoleAdmin, "pw")

	if _, err := svc.Get(context.Background(), actor(accesscontrol.RoleSuperviseur), admin.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRoleChangeNeedsAuthorityOverBothRoles(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	poseur := seedUser(store, accesscontrol.RolePoseur, "pw")

	// Promoting a poseur to charge_affaire is beyond a superviseur.
	newRole := "charge_affaire"
	if _, err := svc.Update(context.Background(), actor(accesscontrol.RoleSuperviseur), poseur.ID, transport.UpdateUserRequest{Role: &newRole}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if _, err := svc.Update(context.Background(), actor(accesscontrol.RoleAdmin), poseur.ID, transport.UpdateUserRequest{Role: &newRole}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSuspendRules(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	otherAdmin := seedUser(store, accesscontrol.RoleAdmin, "pw")
	ca := seedUser(store, accesscontrol.RoleChargeAffaire, "pw")
	poseur := seedUser(store, accesscontrol.RolePoseur, "pw")

	admin := actor(accesscontrol.RoleAdmin)
	if _, err := svc.Suspend(context.Background(), admin, otherAdmin.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("admins cannot suspend admins, got %v", err)
	}
	if _, err := svc.Suspend(context.Background(), admin, ca.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	superviseur := actor(accesscontrol.RoleSuperviseur)
	if _, err := svc.Suspend(context.Background(), superviseur, ca.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("superviseur may only suspend poseurs, got %v", err)
	}
	if _, err := svc.Suspend(context.Background(), superviseur, poseur.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Self-suspension is blocked before the role check.
	self := accesscontrol.Actor{ID: otherAdmin.ID, Role: accesscontrol.RoleAdmin}
	if _, err := svc.Suspend(context.Background(), self, otherAdmin.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on self-suspension, got %v", err)
	}
}

func TestReactivate(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	poseur := seedUser(store, accesscontrol.RolePoseur, "pw")
	_, _ = store.Suspend(context.Background(), poseur.ID)

	resp, err := svc.Reactivate(context.Background(), actor(accesscontrol.RoleSuperviseur), poseur.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.SuspendedAt != nil {
		t.Error("user still suspended after reactivation")
	}
}

func TestMeCarriesGlobalCapabilities(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	poseur := seedUser(store, accesscontrol.RolePoseur, "pw")

	resp, err := svc.Me(context.Background(), accesscontrol.Actor{ID: poseur.ID, Role: accesscontrol.RolePoseur})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Can.CanCreateChantier || resp.Can.CanAccessAdministration || resp.Can.CanSeePresence {
		t.Errorf("poseur capabilities should be minimal: %+v", resp.Can)
	}

	admin := seedUser(store, accesscontrol.RoleAdmin, "pw")
	adminResp, _ := svc.Me(context.Background(), accesscontrol.Actor{ID: admin.ID, Role: accesscontrol.RoleAdmin})
	if !adminResp.Can.CanManageUsers || !adminResp.Can.CanPurgeTrash {
		t.Errorf("admin capabilities incomplete: %+v", adminResp.Can)
	}
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	user := seedUser(store, accesscontrol.RoleChargeAffaire, "old-password")
	self := accesscontrol.Actor{ID: user.ID, Role: accesscontrol.RoleChargeAffaire}

	if err := svc.ChangePassword(context.Background(), self, transport.ChangePasswordRequest{
		CurrentPassword: "wrong", NewPassword: "new-password-1",
	}); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	if err := svc.ChangePassword(context.Background(), self, transport.ChangePasswordRequest{
		CurrentPassword: "old-password", NewPassword: "new-password-1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Login(context.Background(), transport.LoginRequest{Email: user.Email, Password: "new-password-1"}); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}
