package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/climate-explorer/internal/config"
	"github.com/couchcryptid/climate-explorer/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the DeltaWriter needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// DeltaWriter publishes warming deltas to a Kafka topic, one message per country.
// It implements pipeline.Loader.
type DeltaWriter struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewDeltaWriter creates a Kafka producer for the configured delta topic.
func NewDeltaWriter(cfg *config.Config, logger *slog.Logger) *DeltaWriter {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaDeltaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &DeltaWriter{writer: w, topic: cfg.KafkaDeltaTopic, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *DeltaWriter) Name() string { return "kafka" }

// LoadDeltas serializes every delta of ds and publishes them in a single
// WriteMessages call. Keys are country names, so a country's deltas always
// land on the same partition.
func (w *DeltaWriter) LoadDeltas(ctx context.Context, ds *domain.Dataset) error {
	if len(ds.Deltas) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(ds.Deltas))
	for i := range ds.Deltas {
		msg, err := serializeToMessage(ds.Deltas[i], ds.BuiltAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish warming deltas to %s: %w", w.topic, err)
	}
	w.logger.Debug("warming deltas published", "topic", w.topic, "messages", len(msgs))
	return nil
}

func (w *DeltaWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a WarmingDelta into a Kafka message.
func serializeToMessage(d domain.WarmingDelta, builtAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize warming delta: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(d.Country),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "base_year", Value: []byte(strconv.Itoa(d.BaseYear))},
			{Key: "late_year", Value: []byte(strconv.Itoa(d.LateYear))},
			{Key: "built_at", Value: []byte(builtAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
