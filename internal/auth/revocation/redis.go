package revocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/redis/go-redis/v9"
)

// Redis is the shared cache used when more than one instance serves traffic.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

var _ Cache = (*Redis)(nil)

// RedisOptions tunes the client built by NewRedisFromURL.
type RedisOptions struct {
	KeyPrefix   string
	DialTimeout time.Duration
	OpTimeout   time.Duration
}

// NewRedisFromURL parses a redis:// URL, connects and pings.
func NewRedisFromURL(ctx context.Context, url string, opts RedisOptions) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("revocation: parse redis url: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 2
	opt.DialTimeout = durationOr(opts.DialTimeout, 5*time.Second)
	opt.ReadTimeout = durationOr(opts.OpTimeout, 2*time.Second)
	opt.WriteTimeout = durationOr(opts.OpTimeout, 2*time.Second)
	opt.ConnMaxIdleTime = 5 * time.Minute

	r := NewRedis(redis.NewClient(opt), opts.KeyPrefix)

	pingCtx, cancel := context.WithTimeout(ctx, opt.DialTimeout)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// NewRedis wraps an existing client. An empty prefix uses DefaultKeyPrefix.
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) RevokeSession(ctx context.Context, sessionID string, rev domain.SessionRevocation, ttl time.Duration) error {
	b, err := json.Marshal(rev)
	if err != nil {
		return fmt.Errorf("revocation: encode session record: %w", err)
	}
	if err := r.rdb.Set(ctx, sessionKey(r.prefix, sessionID), b, ttl).Err(); err != nil {
		return unavailable("revoke session", err)
	}
	return nil
}

func (r *Redis) SessionRevocation(ctx context.Context, sessionID string) (domain.SessionRevocation, bool, error) {
	b, err := r.rdb.Get(ctx, sessionKey(r.prefix, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SessionRevocation{}, false, nil
	}
	if err != nil {
		return domain.SessionRevocation{}, false, unavailable("session revocation", err)
	}

	var rev domain.SessionRevocation
	if err := json.Unmarshal(b, &rev); err != nil {
		// An unreadable record still marks the session as revoked.
		return domain.SessionRevocation{}, true, nil
	}
	return rev, true, nil
}

func (r *Redis) RevokeToken(ctx context.Context, raw string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, tokenKey(r.prefix, raw), "1", ttl).Err(); err != nil {
		return unavailable("revoke token", err)
	}
	return nil
}

func (r *Redis) IsTokenRevoked(ctx context.Context, raw string) (bool, error) {
	n, err := r.rdb.Exists(ctx, tokenKey(r.prefix, raw)).Result()
	if err != nil {
		return false, unavailable("token revoked", err)
	}
	return n > 0, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (r *Redis) Close() error { return r.rdb.Close() }

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
