// Package events publishes prescription lifecycle events for downstream
// consumers such as pharmacy and billing.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/TeamVaidya/prescription/internal/config"
	"github.com/google/uuid"
)

type Type string

const (
	TypePrescriptionCreated Type = "prescription.created"
	TypePrescriptionUpdated Type = "prescription.updated"
	TypePrescriptionDeleted Type = "prescription.deleted"
)

type Event struct {
	ID             string    `json:"id"`
	Type           Type      `json:"type"`
	OccurredAt     time.Time `json:"occurred_at"`
	PrescriptionID int64     `json:"prescription_id"`
	UserID         int64     `json:"user_id,omitempty"`
	PatientID      int64     `json:"patient_id,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(t Type, prescriptionID, userID, patientID int64) Event {
	return Event{
		ID:             uuid.NewString(),
		Type:           t,
		OccurredAt:     time.Now().UTC(),
		PrescriptionID: prescriptionID,
		UserID:         userID,
		PatientID:      patientID,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher discards events. Used when EVENTS_ENABLED=false.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(cfg config.EventsConfig) (*KafkaPublisher, error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Producer.Retry.Max = 0

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return newKafkaPublisher(producer, cfg.Topic), nil
}

func newKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish sends e keyed by prescription id, so events for one prescription
// stay ordered within a partition.
func (p *KafkaPublisher) Publish(_ context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(e.PrescriptionID, 10)),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(e.Type)},
		},
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("sending %s event: %w", e.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
