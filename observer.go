// Package reactor provides Observer pattern interfaces for exposing kernel
// traffic to external systems. These interfaces use the CloudEvents
// specification for standardized event format and better interoperability.
package reactor

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer defines the interface for objects that want to be notified of
// dispatched kernel events. Observers register with Subjects to receive
// notifications; they should handle events quickly to avoid stalling the
// executing goroutine.
type Observer interface {
	// OnEvent is called for each event the observer is subscribed to. The
	// context can be used for cancellation and timeouts.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer, used for
	// registration tracking and debugging.
	ObserverID() string
}

// Subject defines the interface for objects that can be observed. The
// kernel-side implementation is the ObserverBridge component.
type Subject interface {
	// RegisterObserver adds an observer. Observers can optionally filter by
	// CloudEvent type; an empty eventTypes list receives everything.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes an observer. Idempotent: unregistering an
	// unknown observer is not an error.
	UnregisterObserver(observer Observer) error

	// NotifyObservers sends an event to all registered observers. Observer
	// errors are handled gracefully and never stop other observers.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error

	// GetObservers returns information about registered observers.
	GetObservers() []ObserverInfo
}

// ObserverInfo provides information about a registered observer.
type ObserverInfo struct {
	// ID is the unique identifier of the observer
	ID string `json:"id"`

	// EventTypes are the CloudEvent types this observer is subscribed to.
	// Empty slice means all events.
	EventTypes []string `json:"eventTypes"`

	// RegisteredAt indicates when the observer was registered
	RegisteredAt time.Time `json:"registeredAt"`
}

// CloudEvent type constants for kernel traffic. Following the CloudEvents
// specification these use reverse domain notation. Ordinary dispatched
// events are exposed under EventTypeDispatched with the kernel event name in
// the "eventname" extension.
const (
	EventTypeKernelStarted = "com.reactor.kernel.started"
	EventTypeKernelStopped = "com.reactor.kernel.stopped"
	EventTypeKernelSignal  = "com.reactor.kernel.signal"
	EventTypeDispatchError = "com.reactor.dispatch.error"
	EventTypeDispatched    = "com.reactor.event.dispatched"
)

// FunctionalObserver provides a simple way to create observers using
// functions, without defining full structs.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer that delegates to the provided
// function.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

// OnEvent implements the Observer interface by calling the handler function.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements the Observer interface by returning the observer ID.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}
