package device

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/value"
)

// KafkaFactory handles `kafka://broker[,broker...]/topic` sources and
// targets (spec.md §4.9). Each message is one record, JSON-encoded the
// same way the JSON device shapes rows, since Kafka carries no row
// schema of its own; `partition` and `offset` properties in WITH
// PROPERTIES select a read position (default: partition 0, oldest).
type KafkaFactory struct{}

func (KafkaFactory) Name() string { return "kafka" }

func (KafkaFactory) CanOpen(path string, hints ast.Hints) bool {
	return strings.HasPrefix(path, "kafka://")
}

func kafkaBrokersTopic(path string) (brokers []string, topic string, ok bool) {
	rest := strings.TrimPrefix(path, "kafka://")
	i := strings.Index(rest, "/")
	if i < 0 {
		return nil, "", false
	}
	return strings.Split(rest[:i], ","), rest[i+1:], true
}

func kafkaOffset(hints ast.Hints) int64 {
	switch hints.Properties["offset"] {
	case "latest":
		return sarama.OffsetNewest
	case "":
		return sarama.OffsetOldest
	default:
		if n, err := strconv.ParseInt(hints.Properties["offset"], 10, 64); err == nil {
			return n
		}
		return sarama.OffsetOldest
	}
}

func kafkaPartition(hints ast.Hints) int32 {
	if p, err := strconv.Atoi(hints.Properties["partition"]); err == nil {
		return int32(p)
	}
	return 0
}

type kafkaInput struct {
	consumer  sarama.Consumer
	partition sarama.PartitionConsumer
}

func (KafkaFactory) OpenInput(ctx context.Context, path string, hints ast.Hints) (InputDevice, error) {
	brokers, topic, ok := kafkaBrokersTopic(path)
	if !ok {
		return nil, qerrors.Resource(qerrors.PhaseOpen, nil, "malformed kafka path %q", path)
	}
	cfg := sarama.NewConfig()
	cfg.Consumer.Return.Errors = true
	consumer, err := sarama.NewConsumer(brokers, cfg)
	if err != nil {
		return nil, qerrors.Resource(qerrors.PhaseOpen, err, "connecting to kafka brokers %v", brokers)
	}
	pc, err := consumer.ConsumePartition(topic, kafkaPartition(hints), kafkaOffset(hints))
	if err != nil {
		consumer.Close()
		return nil, qerrors.Resource(qerrors.PhaseOpen, err, "consuming kafka topic %q", topic)
	}
	return &kafkaInput{consumer: consumer, partition: pc}, nil
}

func (in *kafkaInput) Read(ctx context.Context) (Record, error) {
	select {
	case msg, open := <-in.partition.Messages():
		if !open {
			return nil, io.EOF
		}
		var obj map[string]any
		if err := json.Unmarshal(msg.Value, &obj); err != nil {
			return Record{{Name: "value", Value: value.NewString(string(msg.Value))}}, nil
		}
		return recordFromObject(obj), nil
	case err, open := <-in.partition.Errors():
		if !open {
			return nil, io.EOF
		}
		return nil, qerrors.Io(qerrors.PhaseRead, err, "reading kafka message")
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		// A statement reads a topic as a bounded snapshot, not a
		// perpetual subscription, so a quiet partition ends the stream
		// rather than block forever.
		return nil, io.EOF
	}
}

func (in *kafkaInput) Close(ctx context.Context) error {
	in.partition.Close()
	return in.consumer.Close()
}

type kafkaOutput struct {
	producer sarama.SyncProducer
	topic    string
}

func (KafkaFactory) OpenOutput(ctx context.Context, path string, hints ast.Hints, appendMode bool) (OutputDevice, error) {
	brokers, topic, ok := kafkaBrokersTopic(path)
	if !ok {
		return nil, qerrors.Resource(qerrors.PhaseOpen, nil, "malformed kafka path %q", path)
	}
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, qerrors.Resource(qerrors.PhaseOpen, err, "connecting to kafka brokers %v", brokers)
	}
	return &kafkaOutput{producer: producer, topic: topic}, nil
}

func (out *kafkaOutput) Write(ctx context.Context, rec Record) error {
	obj := make(map[string]any, len(rec))
	for _, f := range rec {
		obj[f.Name] = displayGo(f.Value)
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return qerrors.Io(qerrors.PhaseWrite, err, "encoding kafka message")
	}
	_, _, err = out.producer.SendMessage(&sarama.ProducerMessage{
		Topic: out.topic,
		Value: sarama.ByteEncoder(body),
	})
	if err != nil {
		return qerrors.Io(qerrors.PhaseWrite, err, "publishing to kafka topic %q", out.topic)
	}
	return nil
}

func (out *kafkaOutput) Close(ctx context.Context) error {
	return out.producer.Close()
}
