// Package rate implementa rate limiting fixed-window sobre Redis para los
// endpoints de login.
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result es el veredicto de una consulta al limiter.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter cuenta hits por key dentro de ventanas fijas alineadas al
// reloj. La key de Redis lleva el inicio de ventana, así la ventana
// anterior simplemente expira sola.
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "tg:rl:"
	}
	return &RedisLimiter{Client: client, Prefix: prefix, Max: int64(max), Window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	// INCR + expiry en un round-trip; ExpireNX respeta el TTL que dejó el
	// primer hit de la ventana.
	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	hits := incr.Val()
	res := Result{Allowed: hits <= l.Max, Remaining: l.Max - hits}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = winStart.Add(l.Window).Sub(now)
	}
	return res, nil
}
