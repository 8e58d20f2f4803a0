package dispatch

import (
	"fmt"

	"github.com/wb-go/wbf/zlog"

	"github.com/cloudsquares/photoservice/internal/config"
	"github.com/cloudsquares/photoservice/internal/domain"
)

// New builds the configured dispatcher. Redis pushes Sidekiq-compatible
// jobs onto the main API's queues; Kafka publishes one envelope per batch.
func New(cfg *config.DispatchConfig) (domain.TaskDispatcher, error) {
	switch cfg.Type {
	case "redis":
		zlog.Logger.Info().Msg("Initializing redis dispatcher")
		return NewRedisDispatcher(cfg)
	case "kafka":
		zlog.Logger.Info().Msg("Initializing kafka dispatcher")
		return NewKafkaDispatcher(cfg), nil
	default:
		zlog.Logger.Error().Str("type", cfg.Type).Msg("Unsupported dispatch type, use 'redis' or 'kafka'")
		return nil, fmt.Errorf("unsupported dispatch type: %s", cfg.Type)
	}
}
