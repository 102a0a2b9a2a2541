// Package service implements user account management and authentication.
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"chantier_portal_backend/internal/accesscontrol"
	"chantier_portal_backend/internal/events"
	"chantier_portal_backend/internal/users/repository"
	"chantier_portal_backend/internal/users/transport"
	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/config"
	"chantier_portal_backend/platform/logger"
	"chantier_portal_backend/platform/phone"
)

// accessTokenTTL bounds a session; the SPA re-authenticates afterwards.
const accessTokenTTL = 12 * time.Hour

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, params repository.CreateParams) (repository.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	ListByRoles(ctx context.Context, roles []string) ([]repository.User, error)
	Update(ctx context.Context, id uuid.UUID, params repository.UpdateParams) (repository.User, error)
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	Suspend(ctx context.Context, id uuid.UUID) (repository.User, error)
	Reactivate(ctx context.Context, id uuid.UUID) (repository.User, error)
}

type Service struct {
	store Store
	cfg   config.JWTConfig
	bus   events.Bus
	log   *logger.Logger
}

func New(store Store, cfg config.JWTConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, cfg: cfg, bus: bus, log: log}
}

// =============================================================================
// Authentication
// =============================================================================

// Login verifies credentials and issues an access token carrying the role
// claim the middleware and decision table run on.
func (s *Service) Login(ctx context.Context, req transport.LoginRequest) (transport.LoginResponse, error) {
	user, err := s.store.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			// Same answer for unknown email and wrong password.
			return transport.LoginResponse{}, apperr.Unauthorized("invalid credentials")
		}
		return transport.LoginResponse{}, err
	}

	if user.SuspendedAt != nil {
		return transport.LoginResponse{}, apperr.Unauthorized("account suspended")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return transport.LoginResponse{}, apperr.Unauthorized("invalid credentials")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return transport.LoginResponse{}, err
	}

	role, err := accesscontrol.ParseRole(user.Role)
	if err != nil {
		return transport.LoginResponse{}, err
	}

	return transport.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(accessTokenTTL.Seconds()),
		User:        toResponse(accesscontrol.Actor{ID: user.ID, Role: role}, user),
	}, nil
}

// Me returns the caller's profile with the global capability block.
func (s *Service) Me(ctx context.Context, actor accesscontrol.Actor) (transport.MeResponse, error) {
	user, err := s.store.GetByID(ctx, actor.ID)
	if err != nil {
		return transport.MeResponse{}, err
	}

	return transport.MeResponse{
		User: toResponse(actor, user),
		Can:  accesscontrol.GlobalFor(actor.Role),
	}, nil
}

// ChangePassword lets a user rotate their own credential.
func (s *Service) ChangePassword(ctx context.Context, actor accesscontrol.Actor, req transport.ChangePasswordRequest) error {
	user, err := s.store.GetByID(ctx, actor.ID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return apperr.Unauthorized("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.store.SetPasswordHash(ctx, actor.ID, string(hash))
}

func (s *Service) issueToken(user repository.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"type": "access",
		"iat":  now.Unix(),
		"exp":  now.Add(accessTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// =============================================================================
// Account management
// =============================================================================

// Create provisions an account with a generated initial password. The
// password reaches the user by email through the UserCreated event.
func (s *Service) Create(ctx context.Context, actor accesscontrol.Actor, req transport.CreateUserRequest) (transport.UserResponse, error) {
	targetRole, err := accesscontrol.ParseRole(req.Role)
	if err != nil {
		return transport.UserResponse{}, apperr.Validation("unknown role")
	}

	if !accesscontrol.CanManageUser(actor.Role, targetRole) {
		s.log.AccessDenied(string(actor.Role), "create", "user")
		return transport.UserResponse{}, apperr.Forbidden("role cannot create users with this role")
	}

	initialPassword, err := generatePassword()
	if err != nil {
		return transport.UserResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(initialPassword), bcrypt.DefaultCost)
	if err != nil {
		return transport.UserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	params := repository.CreateParams{
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         string(targetRole),
		PasswordHash: string(hash),
	}
	if req.Phone != "" {
		normalized := phone.NormalizeE164(req.Phone)
		params.Phone = &normalized
	}

	user, err := s.store.Create(ctx, params)
	if err != nil {
		return transport.UserResponse{}, err
	}

	s.bus.Publish(ctx, events.UserCreated{
		BaseEvent:       events.NewBaseEvent(),
		UserID:          user.ID,
		Email:           user.Email,
		FullName:        user.FullName,
		Role:            user.Role,
		InitialPassword: initialPassword,
		CreatedBy:       actor.ID,
	})

	return toResponse(actor, user), nil
}

// List returns the user rows the actor may see. A superviseur only ever
// receives charge_affaire and poseur rows, filtered here regardless of what
// the handler asked for.
func (s *Service) List(ctx context.Context, actor accesscontrol.Actor) (transport.UserListResponse, error) {
	visible := accesscontrol.VisibleUserRoles(actor.Role)
	if visible == nil {
		return transport.UserListResponse{}, apperr.Forbidden("role cannot list users")
	}

	roles := make([]string, 0, len(visible))
	for _, role := range visible {
		roles = append(roles, string(role))
	}

	users, err := s.store.ListByRoles(ctx, roles)
	if err != nil {
		return transport.UserListResponse{}, err
	}

	responses := make([]transport.UserResponse, 0, len(users))
	for _, user := range users {
		// Re-check each row against the visibility window; the store
		// query is not trusted to have filtered correctly.
		role, err := accesscontrol.ParseRole(user.Role)
		if err != nil || !s.canSeeRow(actor, role) {
			continue
		}
		responses = append(responses, toResponse(actor, user))
	}
	return transport.UserListResponse{Items: responses, Total: len(responses)}, nil
}

func (s *Service) Get(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID) (transport.UserResponse, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.UserResponse{}, err
	}

	role, err := accesscontrol.ParseRole(user.Role)
	if err != nil {
		return transport.UserResponse{}, err
	}

	if !s.canSeeRow(actor, role) {
		// Rows outside the visibility window read as absent.
		return transport.UserResponse{}, apperr.NotFound("user not found")
	}

	return toResponse(actor, user), nil
}

func (s *Service) Update(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID, req transport.UpdateUserRequest) (transport.UserResponse, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.UserResponse{}, err
	}

	currentRole, err := accesscontrol.ParseRole(user.Role)
	if err != nil {
		return transport.UserResponse{}, err
	}

	if !accesscontrol.CanManageUser(actor.Role, currentRole) {
		s.log.AccessDenied(string(actor.Role), "edit", "user")
		return transport.UserResponse{}, apperr.Forbidden("role cannot manage this user")
	}

	// A role change needs authority over both the old and the new role.
	if req.Role != nil {
		newRole, err := accesscontrol.ParseRole(*req.Role)
		if err != nil {
			return transport.UserResponse{}, apperr.Validation("unknown role")
		}
		if !accesscontrol.CanManageUser(actor.Role, newRole) {
			return transport.UserResponse{}, apperr.Forbidden("role cannot grant this role")
		}
	}

	params := repository.UpdateParams{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164(*req.Phone)
		params.Phone = &normalized
	}

	updated, err := s.store.Update(ctx, id, params)
	if err != nil {
		return transport.UserResponse{}, err
	}
	return toResponse(actor, updated), nil
}

func (s *Service) Suspend(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID) (transport.UserResponse, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.UserResponse{}, err
	}

	targetRole, err := accesscontrol.ParseRole(user.Role)
	if err != nil {
		return transport.UserResponse{}, err
	}

	facts := accesscontrol.UserFacts{TargetID: user.ID, TargetRole: targetRole}
	if facts.IsSelf(actor.ID) {
		return transport.UserResponse{}, apperr.Conflict("cannot suspend own account")
	}
	if !accesscontrol.CanSuspendUser(actor.Role, facts) {
		s.log.AccessDenied(string(actor.Role), "suspend", "user")
		return transport.UserResponse{}, apperr.Forbidden("role cannot suspend this user")
	}

	suspended, err := s.store.Suspend(ctx, id)
	if err != nil {
		return transport.UserResponse{}, err
	}

	s.bus.Publish(ctx, events.UserSuspended{
		BaseEvent:   events.NewBaseEvent(),
		UserID:      id,
		Email:       suspended.Email,
		FullName:    suspended.FullName,
		SuspendedBy: actor.ID,
	})

	return toResponse(actor, suspended), nil
}

func (s *Service) Reactivate(ctx context.Context, actor accesscontrol.Actor, id uuid.UUID) (transport.UserResponse, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.UserResponse{}, err
	}

	targetRole, err := accesscontrol.ParseRole(user.Role)
	if err != nil {
		return transport.UserResponse{}, err
	}

	facts := accesscontrol.UserFacts{TargetID: user.ID, TargetRole: targetRole}
	if !accesscontrol.CanSuspendUser(actor.Role, facts) {
		s.log.AccessDenied(string(actor.Role), "reactivate", "user")
		return transport.UserResponse{}, apperr.Forbidden("role cannot reactivate this user")
	}

	reactivated, err := s.store.Reactivate(ctx, id)
	if err != nil {
		return transport.UserResponse{}, err
	}

	s.bus.Publish(ctx, events.UserReactivated{
		BaseEvent:     events.NewBaseEvent(),
		UserID:        id,
		Email:         reactivated.Email,
		FullName:      reactivated.FullName,
		ReactivatedBy: actor.ID,
	})

	return toResponse(actor, reactivated), nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Service) canSeeRow(actor accesscontrol.Actor, target accesscontrol.Role) bool {
	for _, role := range accesscontrol.VisibleUserRoles(actor.Role) {
		if role == target {
			return true
		}
	}
	return false
}

func generatePassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func toResponse(actor accesscontrol.Actor, user repository.User) transport.UserResponse {
	resp := transport.UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		Role:        user.Role,
		SuspendedAt: user.SuspendedAt,
		CreatedAt:   user.CreatedAt,
	}
	if user.Phone != nil {
		resp.Phone = *user.Phone
	}
	if targetRole, err := accesscontrol.ParseRole(user.Role); err == nil {
		resp.Can = accesscontrol.UserFor(actor.Role, accesscontrol.UserFacts{TargetID: user.ID, TargetRole: targetRole})
	}
	return resp
}
