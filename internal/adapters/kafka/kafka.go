package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// ActivityEvent is the record published for downstream consumers (search
// indexing, notifications). It carries coarse lifecycle facts only, never the
// live edit stream.
type ActivityEvent struct {
	Kind       string `json:"kind"` // document.saved, document.created, document.deleted
	DocumentID uint   `json:"document_id"`
	UserID     uint   `json:"user_id,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// ActivityProducer wraps a kafka writer for the activity topic
type ActivityProducer struct {
	writer *kafka.Writer
}

func NewActivityProducer(brokers []string, topic string) *ActivityProducer {
	return &ActivityProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Publish writes one activity event, keyed by document so per-document order
// is preserved on a single partition
func (p *ActivityProducer) Publish(ctx context.Context, ev ActivityEvent) error {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(ev.DocumentID), 10)),
		Value: value,
	})
}

func (p *ActivityProducer) Close() error {
	return p.writer.Close()
}
