package publishers

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Event describes one stored upload outcome. ErrorMessage is nil for accepted values.
type Event struct {
	EventID      string    `json:"event_id"`
	ValueID      uint64    `json:"value_id"`
	Value        int       `json:"value"`
	ErrorMessage *string   `json:"error_message"`
	Accepted     bool      `json:"accepted"`
	StoredAt     time.Time `json:"stored_at"`
}

// NewEvent constructs an Event for the row stored under id.
func NewEvent(id uint64, value int, errMsg *string) Event {
	return Event{
		EventID:      uuid.NewString(),
		ValueID:      id,
		Value:        value,
		ErrorMessage: errMsg,
		Accepted:     errMsg == nil,
		StoredAt:     time.Now().UTC(),
	}
}

// attributes are attached as message attributes by the queue and topic sinks.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_id": e.EventID,
		"value_id": strconv.FormatUint(e.ValueID, 10),
		"accepted": strconv.FormatBool(e.Accepted),
	}
}
