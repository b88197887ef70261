package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"clinic-scheduling/config"
	"clinic-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
	"github.com/sirupsen/logrus"
)

var ErrProducerClosed = errors.New("producer is closed")

// Header keys attached to every lifecycle message
const (
	HeaderEventType   = "event-type"
	HeaderContentType = "content-type"
)

// AppointmentEvent is the message consumed by the notification collaborator
type AppointmentEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	Type          string    `json:"type"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	DateTime      time.Time `json:"date_time"`
	Duration      int       `json:"duration"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AppointmentProducer exports appointment lifecycle events to Kafka.
// Messages are keyed by doctor id so one doctor's events stay ordered.
type AppointmentProducer struct {
	writer messageWriter
	log    *logrus.Logger
	closed bool
	mu     sync.RWMutex
}

// NewAppointmentProducer builds an asynchronous writer; delivery errors are
// logged from the completion callback and never reach the request path.
func NewAppointmentProducer(cfg config.KafkaConfig, log *logrus.Logger) (*AppointmentProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  compress.Snappy,
		MaxAttempts:  5,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Logger:       kafka.LoggerFunc(func(msg string, args ...any) {}),
		ErrorLogger:  kafka.LoggerFunc(log.Errorf),
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Errorf("Failed to deliver %d appointment events: %+v", len(messages), err)
			}
		},
	}

	return newAppointmentProducer(writer, log), nil
}

func newAppointmentProducer(writer messageWriter, log *logrus.Logger) *AppointmentProducer {
	return &AppointmentProducer{writer: writer, log: log}
}

// Notify publishes one lifecycle event for the appointment
func (p *AppointmentProducer) Notify(ctx context.Context, eventType string, appointment *entity.Appointment) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}

	event := AppointmentEvent{
		EventID:       uuid.New(),
		Type:          eventType,
		AppointmentID: appointment.ID,
		DoctorID:      appointment.DoctorID,
		PatientID:     appointment.PatientID,
		DateTime:      appointment.DateTime,
		Duration:      appointment.Duration,
		Status:        string(appointment.Status),
		OccurredAt:    time.Now().UTC(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal appointment event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(appointment.DoctorID.String()),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(eventType)},
			{Key: HeaderContentType, Value: []byte("application/json")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write appointment event %s: %w", eventType, err)
	}

	p.log.Debugf("Queued %s for appointment %s", eventType, appointment.ID)
	return nil
}

// Close flushes pending messages and releases the writer
func (p *AppointmentProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// NopNotifier is used when no brokers are configured
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, *entity.Appointment) error { return nil }

func (NopNotifier) Close() error { return nil }
