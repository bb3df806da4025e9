package events

import (
	"sync"

	"tableforge/app/interfaces"
)

// Package events is the typed channel between the engine and whatever shell
// is driving it. The engine publishes progress, ticket status transitions and
// log lines; subscribers render them. Publishing never blocks the hot path:
// a subscriber that falls behind loses events, the forensic log does not.

// Event names
const (
	EventProgress     = "progress"
	EventTicketStatus = "ticket-status"
	EventLog          = "log"
)

// ProgressPayload reports analysis or export progress
type ProgressPayload struct {
	Stage   string `json:"stage"`
	Current int64  `json:"current"`
	Total   int64  `json:"total"` // -1 when unknown
	Message string `json:"message"`
}

// TicketStatusPayload reports one ticket's lifecycle transition
type TicketStatusPayload struct {
	TicketID string                  `json:"ticketId"`
	Status   interfaces.ExportStatus `json:"status"`
	Path     string                  `json:"path,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// LogPayload carries one leveled log line to interactive views
type LogPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Event is one published event
type Event struct {
	Name    string
	Payload any
}

// Bus fans events out to subscribers
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewBus creates an event bus
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber with the given channel buffer and returns
// the event channel plus an unsubscribe function
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 64
	}
	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan Event, buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Publish delivers an event to every subscriber without blocking; a full
// subscriber buffer drops the event for that subscriber only
func (b *Bus) Publish(name string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- Event{Name: name, Payload: payload}:
		default:
		}
	}
}
