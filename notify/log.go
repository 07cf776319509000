package notify

import (
	"context"
	"log/slog"
)

// LogNotifier is the fallback sink used when no broker is configured.
type LogNotifier struct {
	Log *slog.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, userID int64, kind Kind, payload map[string]any) {
	n.Log.Info("notify", "user_id", userID, "kind", kind, "payload", payload)
}

func (n *LogNotifier) NotifyStaff(ctx context.Context, kind Kind, payload map[string]any) {
	n.Log.Info("notify staff", "kind", kind, "payload", payload)
}
