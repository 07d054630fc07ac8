package notify

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"vendafacil/backend/internal/domain"
)

// RedisNotifier publishes registration outcomes on a Redis pub/sub channel
// so terminals other than the registering one can show the result. Publish
// errors are logged and dropped; delivery is at most once.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisNotifier(addr string, password string, db int, channel string, logger *zap.Logger) *RedisNotifier {
	if channel == "" {
		channel = "vendafacil.registrations"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

func (r *RedisNotifier) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisNotifier) Close() error {
	return r.client.Close()
}

func (r *RedisNotifier) SaleRegistered(ctx context.Context, saleID string) {
	r.publish(ctx, domain.RegistrationOutcome{SaleID: saleID, At: time.Now().UTC()})
}

func (r *RedisNotifier) RegistrationFailed(ctx context.Context, kind string, detail string) {
	r.publish(ctx, domain.RegistrationOutcome{ErrorKind: kind, Detail: detail, At: time.Now().UTC()})
}

func (r *RedisNotifier) publish(ctx context.Context, outcome domain.RegistrationOutcome) {
	payload, err := json.Marshal(outcome)
	if err != nil {
		r.logger.Warn("failed to encode registration outcome", zap.Error(err))
		return
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.logger.Warn("failed to publish registration outcome",
			zap.String("channel", r.channel),
			zap.Error(err),
		)
	}
}
