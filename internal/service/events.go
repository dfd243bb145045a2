package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventExamIngested    EventType = "exam_ingested"
	EventExamCreated     EventType = "exam_created"
	EventExamUpdated     EventType = "exam_updated"
	EventExamDeleted     EventType = "exam_deleted"
	EventQuestionCreated EventType = "question_created"
	EventQuestionUpdated EventType = "question_updated"
	EventQuestionDeleted EventType = "question_deleted"
	EventTypeCreated     EventType = "type_created"
	EventTypeUpdated     EventType = "type_updated"
	EventTypeDeleted     EventType = "type_deleted"
	EventTagCreated      EventType = "tag_created"
	EventTagUpdated      EventType = "tag_updated"
	EventTagDeleted      EventType = "tag_deleted"
	EventTagAttached     EventType = "tag_attached"
	EventTagDetached     EventType = "tag_detached"
	EventDataRepaired    EventType = "data_repaired"
	EventDataReset       EventType = "data_reset"
)

// Event represents an event that occurred in the system
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Unsubscribe removes a subscriber; it does not close the channel
func (eb *EventBus) Unsubscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, sub := range eb.subscribers {
		if sub == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
