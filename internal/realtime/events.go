// Package realtime pushes queue and doctor status changes to connected
// patient and doctor sessions. Every event carries the current derived state,
// so a dropped message is repaired by the next event or a resync.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"clinic-scheduling/internal/domain/entity"

	"github.com/google/uuid"
)

type EventType string

const (
	// EventQueueUpdated carries a doctor's full waiting list and in-progress entry
	EventQueueUpdated EventType = "queue.updated"
	// EventDoctorStatusChanged carries a doctor's availability status
	EventDoctorStatusChanged EventType = "doctor.status.changed"
	// EventPatientCalled is an informational toast for the called patient
	EventPatientCalled EventType = "patient.called"
	// EventQueueEntryUpdated is a single-entry update for patient trackers
	EventQueueEntryUpdated EventType = "queue.entry.updated"
)

// Event is an immutable payload delivered to every subscriber of Topic
type Event struct {
	Type      EventType       `json:"type"`
	Topic     string          `json:"topic"`
	DoctorID  *uuid.UUID      `json:"doctor_id,omitempty"`
	PatientID *uuid.UUID      `json:"patient_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// DoctorTopic is the channel consumed by a doctor's queue panel
func DoctorTopic(doctorID uuid.UUID) string {
	return "doctor:" + doctorID.String()
}

// PatientTopic is the channel consumed by a patient's tracker
func PatientTopic(patientID uuid.UUID) string {
	return "patient:" + patientID.String()
}

// ActorTopic returns the topic an authenticated caller listens on
func ActorTopic(actor entity.Actor) (string, bool) {
	switch {
	case actor.IsDoctor():
		return DoctorTopic(actor.UserID), true
	case actor.IsPatient():
		return PatientTopic(actor.UserID), true
	default:
		return "", false
	}
}

// NewDoctorEvent builds an event for a doctor's topic
func NewDoctorEvent(eventType EventType, doctorID uuid.UUID, data interface{}) (Event, error) {
	return newEvent(eventType, DoctorTopic(doctorID), &doctorID, nil, data)
}

// NewPatientEvent builds an event for a patient's topic
func NewPatientEvent(eventType EventType, doctorID, patientID uuid.UUID, data interface{}) (Event, error) {
	return newEvent(eventType, PatientTopic(patientID), &doctorID, &patientID, data)
}

func newEvent(eventType EventType, topic string, doctorID, patientID *uuid.UUID, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:      eventType,
		Topic:     topic,
		DoctorID:  doctorID,
		PatientID: patientID,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Publisher delivers events after the mutation producing them has committed.
// Delivery is best-effort; callers log failures and never roll back.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// SnapshotProvider builds the full-state events pushed to a client on
// connect and whenever it asks for a resync.
type SnapshotProvider interface {
	Resync(ctx context.Context, actor entity.Actor) ([]Event, error)
}
