package events

import "time"

// ProcessedEvent marks a processor event as applied. Rows are append only.
type ProcessedEvent struct {
	EventID    string    `db:"event_id" json:"event_id"`
	Type       string    `db:"type" json:"type"`
	ReceivedAt time.Time `db:"received_at" json:"received_at"`
}

func NewProcessedEvent(eventID, eventType string) *ProcessedEvent {
	return &ProcessedEvent{
		EventID:    eventID,
		Type:       eventType,
		ReceivedAt: time.Now().UTC(),
	}
}
