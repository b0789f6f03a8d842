package notify

import (
	"context"

	"github.com/dmitrijs2005/stavros/internal/logging"
)

// LogNotifier writes messages to the log instead of sending them. It is
// used in development when no SMTP server is configured.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notify")}
}

func (n *LogNotifier) SendVerification(ctx context.Context, to Recipient, link string) error {
	m := VerificationMessage(to, link)
	n.logger.Info(ctx, "verification email", "to", m.To, "subject", m.Subject, "link", link)
	return nil
}

func (n *LogNotifier) SendWelcome(ctx context.Context, to Recipient) error {
	m := WelcomeMessage(to)
	n.logger.Info(ctx, "welcome email", "to", m.To, "subject", m.Subject)
	return nil
}
