package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/models"
)

// Notifier delivers a feed entry somewhere the user will see it.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) error
}

// LogNotifier writes feed entries to the log.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "log_notifier").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, notif models.Notification) error {
	n.logger.Info().
		Str("notification_id", notif.ID).
		Str("event_type", string(notif.EventType)).
		Int64("team_id", notif.TeamID).
		Msg(notif.Title)
	return nil
}

func (n *LogNotifier) String() string { return "log" }

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, notification models.Notification) error

func (f NotifierFunc) Notify(ctx context.Context, notification models.Notification) error {
	return f(ctx, notification)
}

func logNotifyError(logger zerolog.Logger, err error, channel string, notif models.Notification) {
	if err == nil {
		return
	}
	logger.Warn().
		Err(err).
		Str("notification_id", notif.ID).
		Str("event_type", string(notif.EventType)).
		Str("channel", channel).
		Msg("failed to deliver notification")
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
