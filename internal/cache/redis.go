package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Connect initializes a Redis client from a redis:// URL or host:port and
// checks it answers.
func Connect(ctx context.Context, redisURL, password string, db int) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL, Password: password, DB: db})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

const clickKeyPrefix = "click:"

// ClickStore caches click id -> link id for the attribution window.
type ClickStore struct {
	client *redis.Client
}

func NewClickStore(client *redis.Client) *ClickStore {
	return &ClickStore{client: client}
}

func (s *ClickStore) SetClick(ctx context.Context, clickID string, linkID uuid.UUID, ttl time.Duration) error {
	return s.client.Set(ctx, clickKeyPrefix+clickID, linkID.String(), ttl).Err()
}

func (s *ClickStore) GetClickLink(ctx context.Context, clickID string) (uuid.UUID, bool, error) {
	raw, err := s.client.Get(ctx, clickKeyPrefix+clickID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt cached link id for click %s: %w", clickID, err)
	}
	return id, true, nil
}

// Only the holder of the token may release the lock.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker implements a SET NX lock with expiry.
type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, "lock:"+key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	unlock := func() {
		// The caller's context may already be cancelled at this point.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = unlockScript.Run(ctx, l.client, []string{"lock:" + key}, token).Err()
	}
	return unlock, true, nil
}
