package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"github.com/elibrary/elibrary-server/internal/notify"
	"github.com/elibrary/elibrary-server/internal/ratelimit"
)

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers reminders through an SMTP relay.
type SMTPSender struct {
	cfg      SMTPConfig
	renderer *Renderer
	limiter  *ratelimit.KeyedRateLimiter
	logger   *slog.Logger
}

// NewSMTPSender creates a sender. Sends are throttled per relay host so a large
// sweep does not trip the relay's own limits.
func NewSMTPSender(cfg SMTPConfig, renderer *Renderer, limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, renderer: renderer, limiter: limiter, logger: logger}
}

// SendReminder renders and sends one reminder.
func (s *SMTPSender) SendReminder(ctx context.Context, rem notify.Reminder) error {
	msg, err := s.renderer.Render(rem)
	if err != nil {
		return err
	}

	m, err := s.build(msg)
	if err != nil {
		return err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, s.cfg.Host); err != nil {
			return fmt.Errorf("wait for send slot: %w", err)
		}
	}

	client, err := s.client()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send reminder to %s: %w", msg.To, err)
	}

	s.logger.Info("reminder email sent", "loan_id", rem.LoanID, "to", msg.To, "days_left", rem.DaysLeft)
	return nil
}

func (s *SMTPSender) build(msg *Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("set from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	return m, nil
}

func (s *SMTPSender) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}

// LogSender writes reminders to the log instead of sending them. It is used
// when no SMTP relay is configured.
type LogSender struct {
	renderer *Renderer
	logger   *slog.Logger
}

// NewLogSender creates a log-only sender.
func NewLogSender(renderer *Renderer, logger *slog.Logger) *LogSender {
	return &LogSender{renderer: renderer, logger: logger}
}

// SendReminder logs the rendered reminder.
func (s *LogSender) SendReminder(_ context.Context, rem notify.Reminder) error {
	msg, err := s.renderer.Render(rem)
	if err != nil {
		return err
	}
	s.logger.Info("reminder (smtp not configured)",
		"loan_id", rem.LoanID,
		"to", msg.To,
		"subject", msg.Subject,
		"days_left", rem.DaysLeft,
	)
	return nil
}

var (
	_ notify.Sender = (*SMTPSender)(nil)
	_ notify.Sender = (*LogSender)(nil)
)
