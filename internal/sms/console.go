package sms

import (
	"context"

	"github.com/wondertwin-ai/app-otp/internal/observability"
	"go.uber.org/zap"
)

// consoleDispatcher logs messages instead of sending them. Local
// development backend; the only one allowed to log the message text.
type consoleDispatcher struct{}

func (d *consoleDispatcher) Provider() string { return "console" }

func (d *consoleDispatcher) Send(ctx context.Context, toPhoneNumber, messageText string) error {
	observability.Logger().Info("sms message (console backend)",
		zap.String("to", toPhoneNumber),
		zap.String("text", messageText),
	)
	observability.SMSMessagesSent.WithLabelValues("console", "sent").Inc()
	return nil
}
