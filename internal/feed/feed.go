// Package feed is the realtime catalog snapshot stream. The remote store is
// consumed as a black box: every message carries a full-collection snapshot
// for one data domain, and reconciliation is layered on top by the loader.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderpad/internal/config"
)

// Snapshot is one full-collection payload delivered for a domain.
type Snapshot struct {
	Domain  string
	Payload []byte
	Offset  int64
	Time    time.Time
}

// Handler processes an inbound snapshot.
type Handler func(context.Context, Snapshot) error

// Client is the pluggable snapshot stream abstraction.
type Client interface {
	Publish(ctx context.Context, domain string, payload []byte) error
	Consume(ctx context.Context, handler Handler) error
	Topic() string
}

// Module wires the feed client.
var Module = fx.Provide(NewClient)

// noopClient is used when the feed is disabled; consumers block until
// cancelled, leaving the loader in cache-only mode.
type noopClient struct {
	topic string
}

func (n noopClient) Publish(context.Context, string, []byte) error { return nil }
func (n noopClient) Consume(ctx context.Context, handler Handler) error {
	<-ctx.Done()
	return ctx.Err()
}
func (n noopClient) Topic() string { return n.topic }

// kafkaClient implements the Client via kafka-go. The message key is the
// domain name so snapshots for one domain stay ordered on one partition.
type kafkaClient struct {
	writer *kafka.Writer
	reader *kafka.Reader
	topic  string
	logger *zap.Logger
}

func (k *kafkaClient) Publish(ctx context.Context, domain string, payload []byte) error {
	if domain == "" {
		return errors.New("feed domain is required")
	}
	// Topic is set on the writer; setting it per-message as well is an error.
	msg := kafka.Message{Key: []byte(domain), Value: payload}
	return k.writer.WriteMessages(ctx, msg)
}

func (k *kafkaClient) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			k.logger.Error("feed fetch failed", zap.Error(err))

			time.Sleep(time.Second)
			continue
		}

		snapshot := Snapshot{
			Domain:  string(msg.Key),
			Payload: append([]byte(nil), msg.Value...),
			Offset:  msg.Offset,
			Time:    msg.Time,
		}

		if err := handler(ctx, snapshot); err != nil {
			k.logger.Error("snapshot handler failed", zap.Error(err), zap.Int64("offset", msg.Offset))

			// Handler signals failure; skip commit to allow redelivery.
			continue
		}

		if err := k.reader.CommitMessages(ctx, msg); err != nil {
			k.logger.Warn("feed commit failed", zap.Error(err))
		}
	}
}

func (k *kafkaClient) Topic() string { return k.topic }

// NewClient builds a feed client based on configuration.
func NewClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	if !cfg.Feed.Enabled || cfg.Feed.Driver == "noop" {
		logger.Info("catalog feed disabled; using noop client")

		return noopClient{topic: cfg.Feed.Kafka.Topic}, nil
	}

	switch cfg.Feed.Driver {
	case "kafka":
		return newKafkaClient(lc, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported feed driver: %s", cfg.Feed.Driver)
	}
}

func newKafkaClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	topic := cfg.Feed.Kafka.Topic

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Feed.Kafka.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		Logger:       kafkaLogger{logger: logger},
		ErrorLogger:  kafkaLogger{logger: logger},
	}

	readerConfig := kafka.ReaderConfig{
		Brokers:        cfg.Feed.Kafka.Brokers,
		GroupID:        cfg.Feed.ConsumerGroup,
		Topic:          topic,
		MinBytes:       cfg.Feed.Kafka.MinBytes,
		MaxBytes:       cfg.Feed.Kafka.MaxBytes,
		CommitInterval: cfg.Feed.Kafka.CommitInterval,
		Dialer: &kafka.Dialer{
			Timeout:  cfg.Feed.Kafka.ConnectTimeout,
			ClientID: cfg.Feed.Kafka.ClientID,
		},
	}

	reader := kafka.NewReader(readerConfig)

	client := &kafkaClient{writer: writer, reader: reader, topic: topic, logger: logger}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing feed client")

			if err := writer.Close(); err != nil {
				return err
			}
			return reader.Close()
		},
	})

	return client, nil
}

type kafkaLogger struct {
	logger *zap.Logger
}

func (k kafkaLogger) Printf(msg string, args ...interface{}) {
	k.logger.Sugar().Debugf(msg, args...)
}
