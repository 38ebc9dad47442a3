package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sentKeyPrefix    = "relay:sent:"
	revokedKeyPrefix = "relay:revoked:"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

type sentValue struct {
	ProviderMessageID string    `json:"providerMessageId"`
	SentAt            time.Time `json:"sentAt"`
}

func sentKey(recordID int64) string {
	return fmt.Sprintf("%s%d", sentKeyPrefix, recordID)
}

func (c *RedisCache) StoreSent(ctx context.Context, recordID int64, providerMessageID string, sentAt time.Time) error {
	b, err := json.Marshal(sentValue{
		ProviderMessageID: providerMessageID,
		SentAt:            sentAt.UTC(),
	})
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, sentKey(recordID), b, c.ttl).Err()
}

// LookupSent returns the provider ids cached for recordIDs in one round
// trip. Ids with no entry, or an unreadable one, are left out.
func (c *RedisCache) LookupSent(ctx context.Context, recordIDs []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(recordIDs))
	if len(recordIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(recordIDs))
	for i, id := range recordIDs {
		keys[i] = sentKey(id)
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var sv sentValue
		if err := json.Unmarshal([]byte(raw), &sv); err != nil || sv.ProviderMessageID == "" {
			continue
		}
		out[recordIDs[i]] = sv.ProviderMessageID
	}
	return out, nil
}

// RedisSessionRevoker stores one key per revoked jti, expiring with the token.
type RedisSessionRevoker struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisSessionRevoker(rdb *redis.Client) *RedisSessionRevoker {
	return &RedisSessionRevoker{rdb: rdb, now: time.Now}
}

func (r *RedisSessionRevoker) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err()
}

func (r *RedisSessionRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
