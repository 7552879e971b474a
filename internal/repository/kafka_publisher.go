package repository

import (
	"context"
	"strconv"

	"RegimeDash/internal/domain/models"
	domrepo "RegimeDash/internal/domain/repository"
	applogger "RegimeDash/pkg/logger"
)

// MessageProducer is the part of pkg/kafka.Producer the publishers use.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaSnapshotPublisher writes Ready snapshots to a topic keyed by sequence.
// Intermediate phases are not written.
type KafkaSnapshotPublisher struct {
	producer MessageProducer
	topic    string
}

var _ domrepo.SnapshotPublisher = (*KafkaSnapshotPublisher)(nil)

func NewKafkaSnapshotPublisher(p MessageProducer, topic string) *KafkaSnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: p, topic: topic}
}

func (k *KafkaSnapshotPublisher) Name() string { return "kafka" }

func (k *KafkaSnapshotPublisher) Publish(ctx context.Context, s models.Snapshot) error {
	if s.Phase != models.PhaseReady {
		return nil
	}
	return k.producer.Publish(ctx, k.topic, []byte(strconv.FormatUint(s.Seq, 10)), models.NewSnapshotEvent(s))
}

// KafkaLogPublisher ships aggregated log batches for the log collector.
type KafkaLogPublisher struct {
	producer MessageProducer
}

var _ applogger.Publisher = (*KafkaLogPublisher)(nil)

func NewKafkaLogPublisher(p MessageProducer) *KafkaLogPublisher {
	return &KafkaLogPublisher{producer: p}
}

func (k *KafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.producer.Publish(ctx, topic, nil, payload)
}
