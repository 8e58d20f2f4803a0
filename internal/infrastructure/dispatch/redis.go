package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wb-go/wbf/zlog"

	"github.com/cloudsquares/photoservice/internal/config"
	"github.com/cloudsquares/photoservice/internal/domain"
)

// redisDispatcher pushes work onto Redis lists consumed by the main API's
// Sidekiq workers. One LPUSH carries the whole batch.
type redisDispatcher struct {
	client      *redis.Client
	photoQueue  string
	deleteQueue string
}

func NewRedisDispatcher(cfg *config.DispatchConfig) (domain.TaskDispatcher, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	if err := pingWithRetries(client, cfg.ConnectRetries, cfg.ConnectRetryDelaySec); err != nil {
		return nil, err
	}

	zlog.Logger.Info().
		Str("addr", cfg.RedisAddr).
		Str("photo_queue", cfg.PhotoQueue).
		Str("delete_queue", cfg.DeleteQueue).
		Msg("Redis dispatcher initialized")

	return &redisDispatcher{
		client:      client,
		photoQueue:  cfg.PhotoQueue,
		deleteQueue: cfg.DeleteQueue,
	}, nil
}

// NewRedisDispatcherWithClient wires an existing client; used by tests.
func NewRedisDispatcherWithClient(client *redis.Client, photoQueue, deleteQueue string) domain.TaskDispatcher {
	return &redisDispatcher{client: client, photoQueue: photoQueue, deleteQueue: deleteQueue}
}

func pingWithRetries(client *redis.Client, retries, delaySec int) error {
	if retries <= 0 {
		retries = 1
	}
	if delaySec <= 0 {
		delaySec = 1
	}

	var err error
	for i := 0; i < retries; i++ {
		zlog.Logger.Info().Msgf("Redis connection attempt %d/%d", i+1, retries)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = client.Ping(ctx).Err()
		cancel()
		if err == nil {
			zlog.Logger.Info().Msg("Redis connection established successfully")
			return nil
		}

		zlog.Logger.Warn().Err(err).Msgf("redis ping failed on attempt %d/%d", i+1, retries)
		if i < retries-1 {
			time.Sleep(time.Duration(delaySec) * time.Second)
		}
	}
	return fmt.Errorf("failed to connect to redis after %d retries: %w", retries, err)
}

func (d *redisDispatcher) DispatchCreated(ctx context.Context, tasks []domain.PhotoTask) error {
	if len(tasks) == 0 {
		return nil
	}

	payloads := make([]interface{}, 0, len(tasks))
	for _, task := range tasks {
		data, err := json.Marshal(task)
		if err != nil {
			zlog.Logger.Error().Err(err).Str("file_url", task.FileURL).Msg("failed to marshal photo task")
			return fmt.Errorf("marshal photo task: %w", err)
		}
		payloads = append(payloads, data)
	}

	if err := d.client.LPush(ctx, d.photoQueue, payloads...).Err(); err != nil {
		zlog.Logger.Error().Err(err).Int("tasks", len(tasks)).Msg("failed to push photo tasks to redis")
		return fmt.Errorf("redis push failed: %w", err)
	}

	zlog.Logger.Info().Int("tasks", len(tasks)).Str("queue", d.photoQueue).Msg("photo tasks dispatched")
	return nil
}

func (d *redisDispatcher) DispatchDeleted(ctx context.Context, deletion domain.PhotoDeletion) error {
	data, err := json.Marshal(deletion)
	if err != nil {
		return fmt.Errorf("marshal photo deletion: %w", err)
	}

	if err := d.client.LPush(ctx, d.deleteQueue, data).Err(); err != nil {
		zlog.Logger.Error().Err(err).Int("file_urls", len(deletion.FileURLs)).Msg("failed to push deletion notice to redis")
		return fmt.Errorf("redis push failed: %w", err)
	}

	zlog.Logger.Info().Int("file_urls", len(deletion.FileURLs)).Str("queue", d.deleteQueue).Msg("deletion notice dispatched")
	return nil
}

func (d *redisDispatcher) Close() error {
	if err := d.client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close redis client")
		return err
	}
	return nil
}
