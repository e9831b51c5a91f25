package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisCallTimeout = 5 * time.Second

// RedisDictionary keeps the keyword index as a Redis set. The index counts as
// ready once its mapping hash exists.
type RedisDictionary struct {
	client     *redis.Client
	wordsKey   string
	mappingKey string
	logger     *zap.Logger
}

// NewRedisDictionary creates a backend for the named index.
func NewRedisDictionary(client *redis.Client, index string, logger *zap.Logger) *RedisDictionary {
	return &RedisDictionary{
		client:     client,
		wordsKey:   fmt.Sprintf("dictionary:%s:words", index),
		mappingKey: fmt.Sprintf("dictionary:%s:mapping", index),
		logger:     logger,
	}
}

// NewRedisClient parses redisURL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// EnsureMapping creates the index mapping so uploads are accepted.
func (d *RedisDictionary) EnsureMapping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()

	err := d.client.HSetNX(ctx, d.mappingKey, "word", "keyword").Err()
	if err != nil {
		return fmt.Errorf("failed to create dictionary mapping: %w", err)
	}
	return nil
}

func (d *RedisDictionary) IndexReady(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()

	n, err := d.client.Exists(ctx, d.mappingKey).Result()
	if err != nil {
		d.logger.Error("dictionary mapping lookup failed", zap.String("key", d.mappingKey), zap.Error(err))
		return false
	}
	return n == 1
}

func (d *RedisDictionary) ApplyWord(ctx context.Context, word string, action models.Action) bool {
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()

	var err error
	switch action {
	case models.ActionRemove:
		err = d.client.SRem(ctx, d.wordsKey, word).Err()
	default:
		err = d.client.SAdd(ctx, d.wordsKey, word).Err()
	}
	if err != nil {
		d.logger.Warn("dictionary word update failed",
			zap.String("word", word),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return false
	}
	return true
}
