package application

import (
	"context"
	"log/slog"
)

// Notifier is told when an override cancels someone else's reservation.
type Notifier interface {
	ReservationOverridden(ctx context.Context, cancelled Conflict, replacement Reservation, by Principal)
}

// LogNotifier records override notifications as log lines.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier writing to logger, or slog.Default when nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: defaultLogger(logger)}
}

// ReservationOverridden implements Notifier.
func (n *LogNotifier) ReservationOverridden(ctx context.Context, cancelled Conflict, replacement Reservation, by Principal) {
	serviceLogger(ctx, n.logger, "Notifier", "ReservationOverridden").InfoContext(ctx,
		"reservation cancelled by manager override",
		"reservation_id", cancelled.ReservationID,
		"owner_id", cancelled.Owner.ID,
		"replacement_id", replacement.ID,
		"overridden_by", by.UserID,
		"overridden_by_role", string(by.Role),
	)
}
