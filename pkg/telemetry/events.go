package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the keystonectl system.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// SweepID is the associated sweep ID, if applicable.
	SweepID string `json:"sweep_id,omitempty"`

	// Entry is the associated catalog entry name, if applicable.
	Entry string `json:"entry,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeSweepStarted    = "sweep.started"
	EventTypeSweepCompleted  = "sweep.completed"
	EventTypeSweepFailed     = "sweep.failed"
	EventTypeEntryChanged    = "entry.changed"
	EventTypeEntryUnchanged  = "entry.unchanged"
	EventTypeEntryFailed     = "entry.failed"
	EventTypeDriftDetected   = "drift.detected"
	EventTypePolicyViolation = "policy.violation"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil
		}
	}
	ep.mu.RUnlock()

	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishSweepStarted publishes a sweep started event.
func (ep *EventPublisher) PublishSweepStarted(sweepID string, entries int, dryRun bool) error {
	return ep.Publish(Event{
		Type:    EventTypeSweepStarted,
		Source:  "reconciler",
		SweepID: sweepID,
		Message: fmt.Sprintf("Sweep %s started (%d entries, dry_run=%t)", sweepID, entries, dryRun),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"entries": entries,
			"dry_run": dryRun,
		},
	})
}

// PublishSweepCompleted publishes a sweep completed event.
func (ep *EventPublisher) PublishSweepCompleted(sweepID, status string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:    EventTypeSweepCompleted,
		Source:  "reconciler",
		SweepID: sweepID,
		Message: fmt.Sprintf("Sweep %s completed with status: %s", sweepID, status),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"status":   status,
			"duration": duration.Seconds(),
		},
	})
}

// PublishSweepFailed publishes a sweep failed event.
func (ep *EventPublisher) PublishSweepFailed(sweepID, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeSweepFailed,
		Source:  "reconciler",
		SweepID: sweepID,
		Message: fmt.Sprintf("Sweep %s failed: %s", sweepID, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishEntryChanged publishes an entry changed event.
func (ep *EventPublisher) PublishEntryChanged(sweepID, entry, serviceID, endpointID string) error {
	return ep.Publish(Event{
		Type:    EventTypeEntryChanged,
		Source:  "reconciler",
		SweepID: sweepID,
		Entry:   entry,
		Message: fmt.Sprintf("Entry %s changed", entry),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"service_id":  serviceID,
			"endpoint_id": endpointID,
		},
	})
}

// PublishEntryUnchanged publishes an entry unchanged event.
func (ep *EventPublisher) PublishEntryUnchanged(sweepID, entry string) error {
	return ep.Publish(Event{
		Type:    EventTypeEntryUnchanged,
		Source:  "reconciler",
		SweepID: sweepID,
		Entry:   entry,
		Message: fmt.Sprintf("Entry %s already converged", entry),
		Level:   EventLevelInfo,
	})
}

// PublishEntryFailed publishes an entry failed event.
func (ep *EventPublisher) PublishEntryFailed(sweepID, entry, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeEntryFailed,
		Source:  "reconciler",
		SweepID: sweepID,
		Entry:   entry,
		Message: fmt.Sprintf("Entry %s failed: %s", entry, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishDriftDetected publishes a drift detected event (check-mode sweeps).
func (ep *EventPublisher) PublishDriftDetected(sweepID, entry string) error {
	return ep.Publish(Event{
		Type:    EventTypeDriftDetected,
		Source:  "reconciler",
		SweepID: sweepID,
		Entry:   entry,
		Message: fmt.Sprintf("Entry %s would change", entry),
		Level:   EventLevelWarning,
	})
}

// PublishPolicyViolation publishes a policy violation event.
func (ep *EventPublisher) PublishPolicyViolation(entry, policyName, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypePolicyViolation,
		Source:  "policy_engine",
		Entry:   entry,
		Message: fmt.Sprintf("Policy violation on entry %s: %s - %s", entry, policyName, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"policy": policyName,
			"reason": reason,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-ep.ctx.Done():
			// Flush remaining events before shutting down
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled || ep.cancel == nil {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterBySweepID creates a filter that only allows events for a specific sweep.
func FilterBySweepID(sweepID string) EventFilter {
	return func(event Event) bool {
		return event.SweepID == sweepID
	}
}
