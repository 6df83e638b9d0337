package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultGuardTTL = 2 * time.Minute

var releaseGuardScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SubmissionGuard marks a (user, place) submission as in flight. It is advisory:
// the ledger's uniqueness constraint remains the source of truth.
type SubmissionGuard interface {
	Acquire(ctx context.Context, userID uuid.UUID, placeID uint) (release func(), acquired bool)
}

type redisSubmissionGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSubmissionGuard constructs a Redis backed guard. A nil client yields a guard that always grants.
func NewSubmissionGuard(client *redis.Client, prefix string, ttl time.Duration, logger zerolog.Logger) SubmissionGuard {
	if client == nil {
		return noopSubmissionGuard{}
	}
	if prefix == "" {
		prefix = "honmoon"
	}
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	return &redisSubmissionGuard{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With().Str("component", "submission_guard").Logger(),
	}
}

func (g *redisSubmissionGuard) Acquire(ctx context.Context, userID uuid.UUID, placeID uint) (func(), bool) {
	key := fmt.Sprintf("%s:submission:%s:%d", g.prefix, userID, placeID)
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("submission guard unavailable, continuing without it")
		return func() {}, true
	}
	if !ok {
		return nil, false
	}

	release := func() {
		if err := releaseGuardScript.Run(context.WithoutCancel(ctx), g.client, []string{key}, token).Err(); err != nil {
			g.logger.Warn().Err(err).Str("key", key).Msg("failed to release submission guard")
		}
	}
	return release, true
}

type noopSubmissionGuard struct{}

func (noopSubmissionGuard) Acquire(context.Context, uuid.UUID, uint) (func(), bool) {
	return func() {}, true
}
