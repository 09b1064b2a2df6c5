package reactor

import (
	"fmt"
	"reflect"
)

// HandlerFunc is the signature of an event handler. The event carries the
// positional and keyed arguments; the returned value becomes the event's
// result unless it is a Generator, in which case the handler is suspended
// and advanced cooperatively by the task scheduler. A non-nil error marks
// the event's value as failed and is surfaced through "error" (and,
// opted in per event, "<name>_failure") events.
type HandlerFunc func(e *Event) (any, error)

// Handler is a callable registered against a manager, matched by event name
// and channel and ordered by priority. Handlers are identified by pointer:
// the *Handler returned by NewHandler is the token used for removal.
type Handler struct {
	fn       HandlerFunc
	names    []string
	channel  any
	priority float64
	filter   bool

	// component is the manager the handler was added to; consulted for the
	// effective channel when the handler has none of its own.
	component *Manager
}

// HandlerOption configures a handler at construction time.
type HandlerOption func(*Handler)

// WithNames sets the event names the handler matches. A handler without
// names matches every event reaching its manager.
func WithNames(names ...string) HandlerOption {
	return func(h *Handler) { h.names = names }
}

// WithChannel sets the handler's channel selector. Without one the handler
// inherits the channel of the manager it is added to.
func WithChannel(channel any) HandlerOption {
	return func(h *Handler) { h.channel = channel }
}

// WithPriority sets the handler's priority. Higher priorities fire first;
// the default is 0.
func WithPriority(priority float64) HandlerOption {
	return func(h *Handler) { h.priority = priority }
}

// AsFilter marks the handler as a filter: a truthy return short-circuits the
// remaining handlers for the event.
func AsFilter() HandlerOption {
	return func(h *Handler) { h.filter = true }
}

// NewHandler builds a handler around fn. Without options the handler is a
// wildcard-name, inherited-channel, priority-0 non-filter.
func NewHandler(fn HandlerFunc, opts ...HandlerOption) *Handler {
	h := &Handler{fn: fn}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Names returns the event names the handler matches; empty means wildcard.
func (h *Handler) Names() []string { return h.names }

// Priority returns the handler's priority.
func (h *Handler) Priority() float64 { return h.priority }

// Filter reports whether the handler short-circuits on a truthy return.
func (h *Handler) Filter() bool { return h.filter }

// String describes the handler for logs and error events.
func (h *Handler) String() string {
	if len(h.names) == 0 {
		return fmt.Sprintf("<handler * p=%v>", h.priority)
	}
	return fmt.Sprintf("<handler %v p=%v>", h.names, h.priority)
}

// effectiveChannel resolves the channel the handler listens on: its own
// channel if set, else the channel of the manager it is bound to, else nil.
func (h *Handler) effectiveChannel() any {
	if h.channel != nil {
		return h.channel
	}
	if h.component != nil && h.component.channel != "" {
		return h.component.channel
	}
	return nil
}

// truthy mirrors the short-circuit test of the filter protocol: nil, false,
// zero numbers, empty strings and empty collections do not trip a filter.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() != 0
	case reflect.Ptr, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	default:
		return true
	}
}
