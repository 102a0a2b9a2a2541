// Package notification sends emails in response to domain events. Domain
// modules publish events and never touch the email provider or templates.
package notification

import (
	"context"
	"strings"

	"chantier_portal_backend/internal/email"
	"chantier_portal_backend/internal/events"
	apphttp "chantier_portal_backend/internal/http"
	"chantier_portal_backend/platform/config"
	"chantier_portal_backend/platform/logger"
)

// Module handles all notification-related event subscriptions.
type Module struct {
	sender email.Sender
	cfg    config.EmailConfig
	log    *logger.Logger
}

// New creates a new notification module.
func New(sender email.Sender, cfg config.EmailConfig, log *logger.Logger) *Module {
	return &Module{sender: sender, cfg: cfg, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes implements http.Module. The module is event-driven and
// exposes no endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {}

// RegisterHandlers subscribes to the domain events that trigger an email.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.UserCreated{}.EventName(), m)
	bus.Subscribe(events.UserSuspended{}.EventName(), m)
	bus.Subscribe(events.UserReactivated{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.UserCreated:
		return m.handleUserCreated(ctx, e)
	case events.UserSuspended:
		return m.handleUserSuspended(ctx, e)
	case events.UserReactivated:
		return m.handleUserReactivated(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleUserCreated(ctx context.Context, e events.UserCreated) error {
	loginURL := m.buildURL("/login")
	if err := m.sender.SendWelcomeEmail(ctx, e.Email, e.FullName, e.Role, e.InitialPassword, loginURL); err != nil {
		m.log.Error("failed to send welcome email",
			"userId", e.UserID,
			"email", e.Email,
			"error", err,
		)
		return err
	}
	m.log.Info("welcome email sent", "userId", e.UserID, "email", e.Email)
	return nil
}

func (m *Module) handleUserSuspended(ctx context.Context, e events.UserSuspended) error {
	if err := m.sender.SendAccountSuspendedEmail(ctx, e.Email, e.FullName); err != nil {
		m.log.Error("failed to send suspension email",
			"userId", e.UserID,
			"email", e.Email,
			"error", err,
		)
		return err
	}
	m.log.Info("suspension email sent", "userId", e.UserID, "email", e.Email)
	return nil
}

func (m *Module) handleUserReactivated(ctx context.Context, e events.UserReactivated) error {
	loginURL := m.buildURL("/login")
	if err := m.sender.SendAccountReactivatedEmail(ctx, e.Email, e.FullName, loginURL); err != nil {
		m.log.Error("failed to send reactivation email",
			"userId", e.UserID,
			"email", e.Email,
			"error", err,
		)
		return err
	}
	m.log.Info("reactivation email sent", "userId", e.UserID, "email", e.Email)
	return nil
}

func (m *Module) buildURL(path string) string {
	return strings.TrimRight(m.cfg.GetAppBaseURL(), "/") + path
}

// Compile-time checks
var (
	_ apphttp.Module = (*Module)(nil)
	_ events.Handler = (*Module)(nil)
)
