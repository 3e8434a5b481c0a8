package amqp

import (
	"encoding/json"
	"time"
)

// EntryRecordedMessage tells the export worker that a ledger entry was
// committed. It carries only the id; the worker fetches the full entry from
// the database before exporting it.
type EntryRecordedMessage struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntryRecordedMessage creates a message for a freshly committed entry.
func NewEntryRecordedMessage(id int64, kind string) *EntryRecordedMessage {
	return &EntryRecordedMessage{
		ID:        id,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntryRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryRecordedMessageFromJSON creates a message from JSON bytes
func EntryRecordedMessageFromJSON(data []byte) (*EntryRecordedMessage, error) {
	var msg EntryRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
