package ledger

import (
	"context"
	"encoding/json"

	"tutorhive/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// LedgerChannel is the redis pub/sub channel ledger-change notifications are
// published on.
const LedgerChannel = "ledger:changed"

// RedisNotifier publishes ledger changes to a redis channel. Any transport
// (socket gateway, poller) subscribes on its own; publish failures are logged
// and never fail the reconciliation that triggered them.
type RedisNotifier struct {
	Client *redis.Client
	Logger *zap.Logger
}

func (n *RedisNotifier) LedgerChanged(ctx context.Context, state *models.CreditLedgerState) {
	payload, err := json.Marshal(map[string]interface{}{
		"studentId": state.StudentID,
		"credits":   state.Credits,
		"hasAccess": state.HasAccess,
	})
	if err != nil {
		n.Logger.Error("failed to encode ledger notification", zap.Error(err))
		return
	}
	if err := n.Client.Publish(ctx, LedgerChannel, payload).Err(); err != nil {
		n.Logger.Warn("failed to publish ledger notification",
			zap.String("studentID", state.StudentID), zap.Error(err))
	}
}
