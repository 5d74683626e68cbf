package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const countryKeyPrefix = "geo:ip:"

type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisRepository {
	return &RedisRepository{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *RedisRepository) SetCountry(ctx context.Context, ip, countryCode string) error {
	err := r.client.Set(ctx, countryKeyPrefix+ip, countryCode, r.ttl).Err()
	if err != nil {
		r.logger.Error("failed to set country in cache",
			zap.String("ip", ip),
			zap.Error(err))
	}
	return err
}

func (r *RedisRepository) GetCountry(ctx context.Context, ip string) (string, error) {
	countryCode, err := r.client.Get(ctx, countryKeyPrefix+ip).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		r.logger.Error("failed to get country from cache",
			zap.String("ip", ip),
			zap.Error(err))
		return "", err
	}
	return countryCode, nil
}

// ClearCountries drops every cached lookup result. Called after the range
// table is rebuilt so stale answers do not outlive it.
func (r *RedisRepository) ClearCountries(ctx context.Context) error {
	var keys []string
	iter := r.client.Scan(ctx, 0, countryKeyPrefix+"*", 1000).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 1000 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}
