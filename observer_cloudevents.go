// Package reactor provides CloudEvents integration for the Observer pattern.
// This file converts kernel events into CloudEvents and hosts the bridge
// component that feeds them to registered observers.
package reactor

import (
	"context"
	"fmt"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// CloudEvent is an alias for the CloudEvents Event type for convenience
type CloudEvent = cloudevents.Event

// NewCloudEvent creates a new CloudEvent with the specified parameters.
func NewCloudEvent(eventType, source string, data interface{}, metadata map[string]interface{}) cloudevents.Event {
	event := cloudevents.NewEvent()

	event.SetID(generateEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)

	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}

	for key, value := range metadata {
		event.SetExtension(key, value)
	}

	return event
}

// DispatchPayload is the structured body of a CloudEvent derived from a
// dispatched kernel event.
type DispatchPayload struct {
	// Name is the kernel event name.
	Name string `json:"name"`
	// Channels are the channel selectors the event was fired on, with
	// directed-delivery targets rendered as manager names.
	Channels []string `json:"channels"`
	// Success, Failure and Complete record the bookkeeping flags.
	Success  bool `json:"success,omitempty"`
	Failure  bool `json:"failure,omitempty"`
	Complete bool `json:"complete,omitempty"`
	// Timestamp is when the event was converted (RFC3339 in JSON output).
	Timestamp time.Time `json:"timestamp"`
}

// KernelEventToCloudEvent converts a dispatched kernel event into its
// CloudEvents representation. Built-in lifecycle events map to dedicated
// types; everything else is exposed as EventTypeDispatched with the kernel
// event name in the "eventname" extension. CloudEvents 1.0 restricts
// extension attribute names to lower-case alphanumerics, so no separators.
func KernelEventToCloudEvent(e *Event, source string) cloudevents.Event {
	evt := cloudevents.NewEvent()
	evt.SetID(e.ID)
	evt.SetSource(source)
	switch e.Name {
	case EventStarted:
		evt.SetType(EventTypeKernelStarted)
	case EventStopped:
		evt.SetType(EventTypeKernelStopped)
	case EventSignal:
		evt.SetType(EventTypeKernelSignal)
	case EventError:
		evt.SetType(EventTypeDispatchError)
	default:
		evt.SetType(EventTypeDispatched)
	}
	payload := DispatchPayload{
		Name:      e.Name,
		Success:   e.Success,
		Failure:   e.Failure,
		Complete:  e.Complete,
		Timestamp: time.Now(),
	}
	for _, ch := range e.Channels {
		switch c := ch.(type) {
		case string:
			payload.Channels = append(payload.Channels, c)
		case *Manager:
			payload.Channels = append(payload.Channels, c.Name())
		default:
			payload.Channels = append(payload.Channels, fmt.Sprintf("%v", c))
		}
	}
	evt.SetTime(payload.Timestamp)
	evt.SetSpecVersion(cloudevents.VersionV1)
	_ = evt.SetData(cloudevents.ApplicationJSON, payload)
	evt.SetExtension("eventname", e.Name)
	return evt
}

// generateEventID generates a unique identifier using UUIDv7, which carries
// timestamp information and so provides time-ordered uniqueness.
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails for any reason
		id = uuid.New()
	}
	return id.String()
}

// ValidateCloudEvent validates that a CloudEvent conforms to the
// specification.
func ValidateCloudEvent(event cloudevents.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("CloudEvent validation failed: %w", err)
	}
	return nil
}

type observerRegistration struct {
	observer     Observer
	eventTypes   []string
	registeredAt time.Time
}

func (r observerRegistration) wants(eventType string) bool {
	if len(r.eventTypes) == 0 {
		return true
	}
	for _, t := range r.eventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// ObserverBridge is a component that mirrors every event dispatched in the
// tree it is registered into onto the CloudEvents observer surface. It
// installs a global handler (wildcard name, wildcard channel) at a low
// priority so observers see events after the application handlers ran.
//
// Register it like any other component:
//
//	bridge := reactor.NewObserverBridge("reactor/app")
//	bridge.Register(root)
//	bridge.RegisterObserver(myObserver, reactor.EventTypeDispatchError)
type ObserverBridge struct {
	*Manager

	source string
	logger Logger

	mu        sync.Mutex
	observers []observerRegistration
}

// NewObserverBridge creates a bridge that stamps the given source onto the
// CloudEvents it emits.
func NewObserverBridge(source string, opts ...ManagerOption) *ObserverBridge {
	b := &ObserverBridge{
		Manager: New(append([]ManagerOption{WithName("observer-bridge")}, opts...)...),
		source:  source,
	}
	b.logger = b.Manager.logger
	b.AddHandler(NewHandler(b.mirror, WithChannel(Wildcard), WithPriority(-90)))
	return b
}

func (b *ObserverBridge) mirror(e *Event) (any, error) {
	ce := KernelEventToCloudEvent(e, b.source)
	return nil, b.NotifyObservers(context.Background(), ce)
}

// RegisterObserver implements Subject.
func (b *ObserverBridge) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrObserverNil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, observerRegistration{
		observer:     observer,
		eventTypes:   eventTypes,
		registeredAt: time.Now(),
	})
	return nil
}

// UnregisterObserver implements Subject.
func (b *ObserverBridge) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return ErrObserverNil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.observers[:0]
	for _, reg := range b.observers {
		if reg.observer.ObserverID() != observer.ObserverID() {
			kept = append(kept, reg)
		}
	}
	b.observers = kept
	return nil
}

// NotifyObservers implements Subject. Observer errors are logged and
// swallowed; one failing observer never stops the others or the dispatcher.
func (b *ObserverBridge) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	b.mu.Lock()
	regs := make([]observerRegistration, len(b.observers))
	copy(regs, b.observers)
	b.mu.Unlock()

	for _, reg := range regs {
		if !reg.wants(event.Type()) {
			continue
		}
		if err := reg.observer.OnEvent(ctx, event); err != nil && b.logger != nil {
			b.logger.Debug("observer failed", "observer", reg.observer.ObserverID(), "eventType", event.Type(), "error", err)
		}
	}
	return nil
}

// GetObservers implements Subject.
func (b *ObserverBridge) GetObservers() []ObserverInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	infos := make([]ObserverInfo, 0, len(b.observers))
	for _, reg := range b.observers {
		infos = append(infos, ObserverInfo{
			ID:           reg.observer.ObserverID(),
			EventTypes:   reg.eventTypes,
			RegisteredAt: reg.registeredAt,
		})
	}
	return infos
}
