// internal/domain/notification/entity.go
package notification

import (
	"time"
)

// MessageType is the closed set of clinical and operational event types
// staff can subscribe to.
type MessageType string

const (
	TypeAdmission            MessageType = "admission"
	TypeDischarge            MessageType = "discharge"
	TypeCriticalResult       MessageType = "critical_result"
	TypeEmergency            MessageType = "emergency"
	TypeAppointmentReminder  MessageType = "appointment_reminder"
	TypeMedicationDue        MessageType = "medication_due"
	TypeLabResult            MessageType = "lab_result"
	TypeVitalSignAlert       MessageType = "vital_sign_alert"
	TypeSystemMaintenance    MessageType = "system_maintenance"
	TypeStaffMessage         MessageType = "staff_message"
	TypeResourceAvailability MessageType = "resource_availability"
	TypeWorkflowUpdate       MessageType = "workflow_update"
)

// AllMessageTypes returns every valid message type, in declaration order.
func AllMessageTypes() []MessageType {
	return []MessageType{
		TypeAdmission,
		TypeDischarge,
		TypeCriticalResult,
		TypeEmergency,
		TypeAppointmentReminder,
		TypeMedicationDue,
		TypeLabResult,
		TypeVitalSignAlert,
		TypeSystemMaintenance,
		TypeStaffMessage,
		TypeResourceAvailability,
		TypeWorkflowUpdate,
	}
}

// IsValid reports whether t is a known message type.
func (t MessageType) IsValid() bool {
	for _, known := range AllMessageTypes() {
		if t == known {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// AckState records acknowledgment of a message that requires it. The
// broker keeps ack state in its own table keyed by message id, never on
// the Message itself.
type AckState struct {
	Acknowledged bool       `json:"acknowledged"`
	By           string     `json:"by,omitempty"`
	At           *time.Time `json:"at,omitempty"`
}

// Message is a single notification. Immutable once published: the same
// value is shared by the offline queue, history writes, and frame
// marshaling, so nothing may write to it after Publish returns.
type Message struct {
	ID             string                 `json:"id"`
	Type           MessageType            `json:"type"`
	Priority       Priority               `json:"priority"`
	Title          string                 `json:"title"`
	Body           string                 `json:"body"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	TargetIdentity string                 `json:"target_identity,omitempty"`
	// Department and Role are broadcast resolution filters only; they are
	// not used for routing once a target identity is set.
	Department  string     `json:"department,omitempty"`
	Role        string     `json:"role,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	RequiresAck bool       `json:"requires_ack"`
}

// Expired reports whether the message's TTL has passed at the given time.
func (m *Message) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}

// DeliveryStatus is the lifecycle of one channel attempt.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
	StatusFailed    DeliveryStatus = "failed"
)

// DeliveryRecord is an append-only record of one delivery attempt over one
// channel. The broker emits these to the history collaborator and never
// reads them back.
type DeliveryRecord struct {
	MessageID     string         `json:"message_id"`
	Identity      string         `json:"identity"`
	Channel       string         `json:"channel"`
	Status        DeliveryStatus `json:"status"`
	AttemptedAt   time.Time      `json:"attempted_at"`
	FailureReason string         `json:"failure_reason,omitempty"`
}
