// Package notify holds Notifier implementations. Real delivery
// channels (push, SMS) hang off the same interface; the log notifier
// is what the batch binaries run with.
package notify

import (
	"context"

	"go.uber.org/zap"

	"orderlife/application/subscriber"
	"orderlife/pkg/logger"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

// NewLogNotifier wires the notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(ctx context.Context, receiverID, subject, body string) error {
	logger.Info("notification",
		zap.String("receiver_id", receiverID),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}

var _ subscriber.Notifier = (*LogNotifier)(nil)
