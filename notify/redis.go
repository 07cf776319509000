package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const staffChannel = "notify:staff"

type RedisNotifier struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedis(rdb *redis.Client, log *slog.Logger) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, log: log}
}

type envelope struct {
	Kind    Kind           `json:"kind"`
	UserID  int64          `json:"user_id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	SentAt  time.Time      `json:"sent_at"`
}

func (n *RedisNotifier) Notify(ctx context.Context, userID int64, kind Kind, payload map[string]any) {
	n.publish(ctx, fmt.Sprintf("notify:user:%d", userID), envelope{
		Kind: kind, UserID: userID, Payload: payload, SentAt: time.Now().UTC(),
	})
}

func (n *RedisNotifier) NotifyStaff(ctx context.Context, kind Kind, payload map[string]any) {
	n.publish(ctx, staffChannel, envelope{
		Kind: kind, Payload: payload, SentAt: time.Now().UTC(),
	})
}

func (n *RedisNotifier) publish(ctx context.Context, channel string, ev envelope) {
	raw, err := json.Marshal(ev)
	if err != nil {
		n.log.Warn("notify marshal failed", "kind", ev.Kind, "err", err)
		return
	}
	if err := n.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		n.log.Warn("notify publish failed", "channel", channel, "kind", ev.Kind, "err", err)
	}
}
