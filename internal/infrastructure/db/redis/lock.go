package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-management/internal/core/domain"
)

const (
	defaultLockTTL = 5 * time.Second
	retryInterval  = 50 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ClientLock serialises assignment changes for one client across instances.
// Key format: usermgmt:lock:client:<client_id>
type ClientLock struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	log    zerolog.Logger
}

// NewClientLock creates a ClientLock. Locks expire after ttl if never
// released, and Lock waits at most ttl for a held lock.
func NewClientLock(client *redis.Client, ttl time.Duration, log zerolog.Logger) *ClientLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &ClientLock{client: client, ttl: ttl, retry: retryInterval, log: log}
}

// Lock takes the lock for clientID, polling while another holder has it.
// If it is still held after the TTL, Lock returns
// domain.ErrAssignmentInProgress.
func (l *ClientLock) Lock(ctx context.Context, clientID int64) (func(), error) {
	key := l.key(clientID)
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return nil, err
	}

	unlock := func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("failed to release client lock")
		}
	}
	return unlock, nil
}

func (l *ClientLock) acquire(ctx context.Context, key, token string) error {
	deadline := time.NewTimer(l.ttl)
	defer deadline.Stop()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return domain.Unavailable("acquire client lock", err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			l.log.Debug().Str("key", key).Dur("waited", l.ttl).Msg("client lock still held")
			return domain.ErrAssignmentInProgress
		case <-ticker.C:
		}
	}
}

func (l *ClientLock) key(clientID int64) string {
	return fmt.Sprintf("usermgmt:lock:client:%d", clientID)
}
