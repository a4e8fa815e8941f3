package notify

import (
	"context"

	"go.uber.org/zap"
)

// Sender delivers a notification to a patient or doctor. Implementations
// are fire-and-forget collaborators: callers log failures and move on, a
// mail outage must never roll back a booking.
type Sender interface {
	Send(ctx context.Context, toEmail, subject string, data map[string]string) error
}

// LogSender records notifications in the log instead of delivering them.
// Used in dev and as the default until a real mailer is wired in.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, toEmail, subject string, data map[string]string) error {
	fields := []zap.Field{
		zap.String("to", toEmail),
		zap.String("subject", subject),
	}
	for k, v := range data {
		fields = append(fields, zap.String(k, v))
	}
	s.log.Info("notification", fields...)
	return nil
}
