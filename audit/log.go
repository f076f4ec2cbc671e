package audit

import (
	"go.uber.org/zap"

	"github.com/franksops/welllit/engine"
)

// LogSubscriber returns a handler that logs every committed event.
func LogSubscriber(logger *zap.Logger) engine.EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ev engine.Event) {
		logger.Info("transfer event",
			zap.String("record_id", ev.RecordID),
			zap.String("action", string(ev.Action)),
			zap.String("previous", ev.Previous.String()),
			zap.String("new", ev.New.String()),
			zap.String("timestamp", ev.TimestampUTC()),
		)
	}
}
