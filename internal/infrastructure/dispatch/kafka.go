package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"

	"github.com/cloudsquares/photoservice/internal/config"
	"github.com/cloudsquares/photoservice/internal/domain"
	"github.com/cloudsquares/photoservice/internal/helpers"
)

const (
	eventPhotosCreated = "photos.created"
	eventPhotosDeleted = "photos.deleted"
)

// batchEnvelope is the message published per batch on the kafka variant.
type batchEnvelope struct {
	Event    string                `json:"event"`
	Tasks    []domain.PhotoTask    `json:"tasks,omitempty"`
	Deletion *domain.PhotoDeletion `json:"deletion,omitempty"`
}

// kafkaDispatcher publishes one envelope per batch. Sends are single
// attempts; a failed publish is surfaced to the pipeline, never retried
// here.
type kafkaDispatcher struct {
	client *wbfkafka.Producer
	topic  string
}

func NewKafkaDispatcher(cfg *config.DispatchConfig) domain.TaskDispatcher {
	brokers := helpers.SplitAndTrim(cfg.KafkaBrokers, ",")
	client := wbfkafka.NewProducer(brokers, cfg.KafkaTopic)
	zlog.Logger.Info().
		Strs("brokers", brokers).
		Str("topic", cfg.KafkaTopic).
		Msg("Kafka dispatcher initialized (wbf)")
	return &kafkaDispatcher{client: client, topic: cfg.KafkaTopic}
}

func (d *kafkaDispatcher) DispatchCreated(ctx context.Context, tasks []domain.PhotoTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return d.send(ctx, batchEnvelope{Event: eventPhotosCreated, Tasks: tasks})
}

func (d *kafkaDispatcher) DispatchDeleted(ctx context.Context, deletion domain.PhotoDeletion) error {
	return d.send(ctx, batchEnvelope{Event: eventPhotosDeleted, Deletion: &deletion})
}

func (d *kafkaDispatcher) send(ctx context.Context, envelope batchEnvelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("event", envelope.Event).Msg("failed to marshal batch envelope")
		return fmt.Errorf("marshal batch envelope: %w", err)
	}
	if err := d.client.Send(ctx, nil, data); err != nil {
		zlog.Logger.Error().Err(err).Str("event", envelope.Event).Msg("failed to send kafka message")
		return fmt.Errorf("kafka send failed: %w", err)
	}
	zlog.Logger.Info().Str("event", envelope.Event).Int("tasks", len(envelope.Tasks)).Msg("batch envelope sent to kafka")
	return nil
}

func (d *kafkaDispatcher) Close() error {
	if err := d.client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka producer")
		return err
	}
	return nil
}
