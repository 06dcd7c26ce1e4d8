package events

// Kind represents the type of change event produced by the reconciler and
// the triage engine.
type Kind string

const (
	KindRecordCreated  Kind = "record_created"
	KindRecordUpdated  Kind = "record_updated"
	KindRecordDeleted  Kind = "record_deleted"
	KindMessageChanged Kind = "message_changed"
	KindMessageDeleted Kind = "message_deleted"
)

// Event carries the minimum data a presentation-side consumer needs; the full
// record can be re-read from the store.
type Event struct {
	Kind       Kind
	Collection string // set for record events
	ID         int64
}

// Bus is a lightweight in-process pub-sub backed by a buffered channel.
// A nil *Bus is valid and drops all publishes.
type Bus struct {
	ch chan Event
}

// NewBus creates a bus with the given buffer size.
func NewBus(buffer int) *Bus {
	return &Bus{ch: make(chan Event, buffer)}
}

// Publish attempts to enqueue the event without blocking.
// Returns true if published, false if the bus is nil or the buffer is full.
func (b *Bus) Publish(evt Event) bool {
	if b == nil {
		return false
	}
	select {
	case b.ch <- evt:
		return true
	default:
		return false
	}
}

// Subscribe returns a read-only channel for consumers. On a nil bus it
// returns a nil channel, which never delivers.
func (b *Bus) Subscribe() <-chan Event {
	if b == nil {
		return nil
	}
	return b.ch
}
