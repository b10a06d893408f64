package providers

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samber/do/v2"

	"github.com/elibrary/elibrary-server/internal/config"
	"github.com/elibrary/elibrary-server/internal/logger"
	"github.com/elibrary/elibrary-server/internal/mail"
	"github.com/elibrary/elibrary-server/internal/notify"
	"github.com/elibrary/elibrary-server/internal/ratelimit"
)

// mailPerMinute caps outgoing reminder mail per relay host.
const mailPerMinute = 30

// MailSenderHandle wraps the reminder sender and its throttle.
type MailSenderHandle struct {
	notify.Sender
	limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *MailSenderHandle) Shutdown() error {
	if h.limiter != nil {
		h.limiter.Stop()
	}
	return nil
}

// ProvideMailSender provides the SMTP sender, or a log-only sender when no relay is configured.
func ProvideMailSender(i do.Injector) (*MailSenderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	renderer, err := mail.NewRenderer(cfg.Lending.FineRatePerDay, cfg.Lending.Currency, cfg.Notifier.Location)
	if err != nil {
		return nil, err
	}

	if cfg.Mail.Host == "" {
		log.Info("SMTP not configured, reminders will be logged only")
		return &MailSenderHandle{Sender: mail.NewLogSender(renderer, log.Component("mail"))}, nil
	}

	limiter := ratelimit.NewPerInterval(mailPerMinute, time.Minute, mailPerMinute)
	sender := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	}, renderer, limiter, log.Component("mail"))

	log.Info("SMTP sender configured", "host", cfg.Mail.Host, "port", cfg.Mail.Port)

	return &MailSenderHandle{Sender: sender, limiter: limiter}, nil
}

// NotifierHandle holds the reminder notifier. Notifier is nil when disabled.
type NotifierHandle struct {
	*notify.Notifier
}

// ProvideNotifier provides the due-date reminder notifier.
func ProvideNotifier(i do.Injector) (*NotifierHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Notifier.Enabled {
		log.Info("Due-date notifier disabled by configuration")
		return &NotifierHandle{}, nil
	}

	storeHandle := do.MustInvoke[*StoreHandle](i)
	senderHandle := do.MustInvoke[*MailSenderHandle](i)
	clock := do.MustInvoke[clockwork.Clock](i)

	n := notify.New(storeHandle.Store, senderHandle.Sender, clock, log.Component("notifier"))
	return &NotifierHandle{Notifier: n}, nil
}

// ReminderSchedulerJob runs the daily reminder sweep.
type ReminderSchedulerJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (j *ReminderSchedulerJob) Shutdown() error {
	if j.cancel == nil {
		return nil
	}
	j.cancel()

	select {
	case <-j.done:
	case <-time.After(shutdownTimeout):
	}
	return nil
}

// ProvideReminderScheduler starts the sweep scheduler when the notifier is enabled.
func ProvideReminderScheduler(i do.Injector) (*ReminderSchedulerJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	notifierHandle := do.MustInvoke[*NotifierHandle](i)
	clock := do.MustInvoke[clockwork.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	if notifierHandle.Notifier == nil {
		return &ReminderSchedulerJob{}, nil
	}

	scheduler := notify.NewScheduler(notifierHandle.Notifier, clock, cfg.Notifier.Location, log.Component("scheduler"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Run(ctx)
	}()

	log.Info("Reminder scheduler started", "timezone", cfg.Notifier.Location.String())

	return &ReminderSchedulerJob{cancel: cancel, done: done}, nil
}
