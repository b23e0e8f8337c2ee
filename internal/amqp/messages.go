package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType names a ledger change.
type EventType string

const (
	EventFieldCreated EventType = "field.created"
	EventFieldDeleted EventType = "field.deleted"
	EventEntryCreated EventType = "entry.created"
	EventEntryDeleted EventType = "entry.deleted"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventFieldCreated, EventFieldDeleted, EventEntryCreated, EventEntryDeleted:
		return true
	}
	return false
}

// LedgerEventMessage tells consumers that one owner's month changed.
// It carries identifiers only; consumers re-read the store.
type LedgerEventMessage struct {
	Type      EventType `json:"type"`
	Owner     string    `json:"owner"`
	Month     string    `json:"month"` // YYYY-MM
	FieldID   string    `json:"field_id,omitempty"`
	EntryID   string    `json:"entry_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(eventType EventType, owner, month, fieldID, entryID string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Type:      eventType,
		Owner:     owner,
		Month:     month,
		FieldID:   fieldID,
		EntryID:   entryID,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEventMessage) Validate() error {
	if !m.Type.IsValid() {
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	if m.Owner == "" {
		return errors.New("event without owner")
	}
	if m.Month == "" {
		return errors.New("event without month")
	}
	if _, err := time.Parse("2006-01", m.Month); err != nil {
		return fmt.Errorf("invalid month %q", m.Month)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes and validates a message.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
