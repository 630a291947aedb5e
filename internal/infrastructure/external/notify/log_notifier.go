package notify

import (
	"context"

	"github.com/garyjia/staff-evaluation/internal/application/port"
	"go.uber.org/zap"
)

// LogNotifier writes notices to the log. Used when no messaging backend is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the message and never fails
func (n *LogNotifier) Notify(ctx context.Context, personID string, message string) error {
	n.logger.Info("Notification",
		zap.String("person_id", personID),
		zap.String("message", message))
	return nil
}

var _ port.Notifier = (*LogNotifier)(nil)
