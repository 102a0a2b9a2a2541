package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers mail over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendWelcomeEmail(ctx context.Context, toEmail, fullName, role, initialPassword, loginURL string) error {
	content, err := renderEmailTemplate("welcome.html", welcomeEmailData{
		baseEmailData: baseEmailData{
			Title:    "Bienvenue",
			Heading:  "Bienvenue sur le Portail Chantier",
			CTALabel: "Se connecter",
			CTAURL:   loginURL,
		},
		FullName:        fullName,
		Role:            role,
		InitialPassword: initialPassword,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectWelcome, content)
}

func (s *SMTPSender) SendAccountSuspendedEmail(ctx context.Context, toEmail, fullName string) error {
	content, err := renderEmailTemplate("suspended.html", accountStatusEmailData{
		baseEmailData: baseEmailData{
			Title:   "Compte suspendu",
			Heading: "Votre compte a été suspendu",
		},
		FullName: fullName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectAccountSuspended, content)
}

func (s *SMTPSender) SendAccountReactivatedEmail(ctx context.Context, toEmail, fullName, loginURL string) error {
	content, err := renderEmailTemplate("reactivated.html", accountStatusEmailData{
		baseEmailData: baseEmailData{
			Title:    "Compte réactivé",
			Heading:  "Votre compte a été réactivé",
			CTALabel: "Se connecter",
			CTAURL:   loginURL,
		},
		FullName: fullName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectAccountReactivated, content)
}
