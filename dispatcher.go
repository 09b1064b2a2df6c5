package reactor

import (
	"fmt"
	"runtime/debug"
)

// dispatch invokes every resolved handler for (event, channels) in priority
// order, collects return values, registers tasks for suspended handlers and
// drives completion accounting.
func (m *Manager) dispatch(e *Event, channels []any) {
	m.currentlyHandling = e
	if e.Complete {
		if e.cause == nil {
			// Self-rooted: the sentinel terminating the cause-chain walk.
			e.cause = e
		}
		e.effects = 1
	}

	handlers := m.resolve(e, channels)

	var derr *DispatchError
	for _, h := range handlers {
		e.handler = h
		out, herr := invoke(h, e)
		if herr != nil {
			derr = herr
			e.value.setErrors()
			out = derr

			if m.logger != nil {
				m.logger.Error("handler failed", "event", e.Name, "handler", h.String(), "error", herr.Err)
			}
			if e.Failure {
				m.Fire(failureEvent(e, derr), e.Channels...)
			}
			m.Fire(errorEvent(derr))
		}

		if g, ok := out.(Generator); ok {
			e.waitingHandlers++
			e.value.setPromise()
			m.registerTask(&Task{event: e, gen: g})
		} else if out != nil {
			e.value.setResult(out)
		}

		if h.filter && truthy(out) {
			break
		}
	}

	m.currentlyHandling = nil
	m.eventDone(e, derr)
}

// invoke calls the handler, converting a panic into a DispatchError carrying
// the goroutine stack.
func invoke(h *Handler, e *Event) (out any, derr *DispatchError) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			derr = &DispatchError{
				Err:     fmt.Errorf("%w: %v", ErrHandlerPanic, r),
				Stack:   string(debug.Stack()),
				Handler: h,
			}
		}
	}()
	v, err := h.fn(e)
	if err != nil {
		return nil, &DispatchError{Err: err, Handler: h}
	}
	return v, nil
}

// eventDone runs once an event's synchronous handlers have finished. It is
// skipped while suspended handlers remain; the task scheduler calls back
// when the last one is drained. It fires the opted-in bookkeeping events and
// walks the cause chain, decrementing effects and firing "<name>_complete"
// for every event whose transitive follow-ups have all finished.
func (m *Manager) eventDone(e *Event, derr *DispatchError) {
	if e.waitingHandlers > 0 {
		return
	}
	e.value.settle()

	// The "<name>_done" event is internal to WaitEvent; applications
	// interested in the last handler of an event should watch
	// "<name>_success".
	if e.AlertDone {
		m.Fire(doneEvent(e), e.Channels...)
	}

	if derr == nil && e.Success {
		channels := e.SuccessChannels
		if channels == nil {
			channels = e.Channels
		}
		m.Fire(successEvent(e), channels...)
	}

	for e.cause != nil {
		e.effects--
		if e.effects > 0 {
			// Nested events remain to be completed.
			break
		}
		if e.Complete {
			channels := e.CompleteChannels
			if channels == nil {
				channels = e.Channels
			}
			m.Fire(completeEvent(e), channels...)
		}
		cause := e.cause
		e.cause = nil
		e.effects = 0
		e = cause
	}
}
