package infra

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"admission-gateway/middleware/admission/domain"

	"github.com/redis/go-redis/v9"
)

// RedisCache guarda o histórico de cada chave como uma lista JSON de timestamps
// (unix milli) gravada com SET + TTL.
//
// Propositalmente sem transação/CAS: leituras e escritas concorrentes da mesma
// chave seguem last-write-wins, consistente com o limite "soft" do domínio.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

type RedisCacheOption func(*RedisCache)

func WithCachePrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) {
		c.prefix = strings.Trim(prefix, ":")
	}
}

func NewRedisCache(rdb *redis.Client, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		rdb:    rdb,
		prefix: "admission:history",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ domain.HistoryCache = (*RedisCache)(nil)

func (c *RedisCache) redisKey(key domain.Key) string {
	return c.prefix + ":" + string(key)
}

func (c *RedisCache) Get(ctx context.Context, key domain.Key) ([]time.Time, bool, error) {
	raw, err := c.rdb.Get(ctx, c.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var millis []int64
	if err := json.Unmarshal(raw, &millis); err != nil {
		// valor corrompido equivale a ausência: a próxima escrita regrava
		return nil, false, nil
	}

	history := make([]time.Time, 0, len(millis))
	for _, ms := range millis {
		history = append(history, time.UnixMilli(ms))
	}
	return history, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key domain.Key, history []time.Time, ttl time.Duration) error {
	millis := make([]int64, 0, len(history))
	for _, t := range history {
		millis = append(millis, t.UnixMilli())
	}

	raw, err := json.Marshal(millis)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.redisKey(key), raw, ttl).Err()
}
