package reactor

// Generator is the suspended form of a handler: an explicit state machine
// the task scheduler advances one step per pass. Next returns the yielded
// value, or done once the sequence is exhausted; a finished generator must
// keep reporting done. The in argument carries a resumption value when the
// scheduler hands the result of a nested call back to its parent, and is nil
// otherwise.
//
// Yield protocol, as interpreted by the scheduler:
//   - a Generator: the current task suspends on the nested sequence
//   - a CallValue: a CallEvent resolved; the parent resumes with its value
//   - any other non-nil value: recorded as the event's result
//   - nil: nothing this pass, try again next tick
type Generator interface {
	Next(in any) (out any, done bool, err error)
}

// GeneratorFunc adapts a step function to the Generator interface.
type GeneratorFunc func(in any) (out any, done bool, err error)

// Next implements Generator.
func (f GeneratorFunc) Next(in any) (any, bool, error) { return f(in) }

// CallValue wraps the promise of an event dispatched through CallEvent. The
// scheduler resumes the suspended caller with the wrapped value.
type CallValue struct {
	Value *Value
}

// Task pairs a suspended generator with the event whose handler produced it,
// and the parent generator to resume once a nested call resolves.
type Task struct {
	event  *Event
	gen    Generator
	parent Generator
}

// Event returns the event the task belongs to.
func (t *Task) Event() *Event { return t.event }

// RegisterTask registers a suspended generator for the event on the root.
// The kernel does this automatically for handlers returning a Generator;
// event sources that self-suspend may register their own. Returns the task
// record for UnregisterTask.
func (m *Manager) RegisterTask(e *Event, g Generator) *Task {
	t := &Task{event: e, gen: g}
	m.root.registerTask(t)
	return t
}

// UnregisterTask removes a task; unknown tasks are tolerated.
func (m *Manager) UnregisterTask(t *Task) {
	m.root.unregisterTask(t)
}

func (m *Manager) registerTask(t *Task) {
	m.tasks[t] = struct{}{}
}

func (m *Manager) unregisterTask(t *Task) {
	delete(m.tasks, t)
}

// processTask advances a suspended handler by one step and interprets what
// it yielded.
func (m *Manager) processTask(t *Task) {
	e := t.event

	out, done, err := t.gen.Next(nil)
	if err != nil {
		m.taskFailure(t, err)
		return
	}
	if done {
		if out != nil {
			e.value.setResult(out)
		}
		e.waitingHandlers--
		m.unregisterTask(t)
		if t.parent != nil {
			m.registerTask(&Task{event: e, gen: t.parent})
		} else if e.waitingHandlers == 0 {
			e.value.Inform(true)
			m.eventDone(e, nil)
		}
		return
	}

	switch v := out.(type) {
	case CallValue:
		// A CallEvent resolved; this task is finished, resume the caller.
		m.unregisterTask(t)
		if t.parent == nil {
			// The handler returned the call generator directly; the call's
			// result becomes the event's result.
			if v.Value != nil && v.Value.Result() != nil {
				e.value.setResult(v.Value.Result())
			}
			e.waitingHandlers--
			if e.waitingHandlers == 0 {
				e.value.Inform(true)
				m.eventDone(e, nil)
			}
			return
		}
		pout, pdone, perr := t.parent.Next(v.Value)
		if perr != nil {
			m.taskFailure(&Task{event: e, gen: t.parent}, perr)
			return
		}
		if pdone {
			if pout != nil {
				e.value.setResult(pout)
			}
			e.waitingHandlers--
			m.registerTask(&Task{event: e, gen: t.parent})
			return
		}
		if g, ok := pout.(Generator); ok {
			// The caller suspended again immediately; the waiting-handler
			// count carries over from the slot just vacated.
			nt := &Task{event: e, gen: g, parent: t.parent}
			m.registerTask(nt)
			m.processTask(nt)
			return
		}
		e.waitingHandlers--
		if pout != nil {
			e.value.setResult(pout)
		}
		m.registerTask(&Task{event: e, gen: t.parent})

	case Generator:
		e.waitingHandlers++
		nt := &Task{event: e, gen: v, parent: t.gen}
		m.registerTask(nt)
		m.unregisterTask(t)
		// Advance the child inside the same tick so handlers it installs
		// take effect before the queue flush.
		m.processTask(nt)

	default:
		if out != nil {
			e.value.setResult(out)
		}
	}
}

func (m *Manager) taskFailure(t *Task, err error) {
	m.unregisterTask(t)
	e := t.event

	derr := &DispatchError{Err: err, Handler: e.handler}
	e.value.setErrors()
	e.value.Inform(true)

	if m.logger != nil {
		m.logger.Error("task failed", "event", e.Name, "error", err)
	}
	if e.Failure {
		m.Fire(failureEvent(e, derr), e.Channels...)
	}
	m.Fire(errorEvent(derr))
}

// WaitEvent returns a generator that suspends its caller until all handlers
// for the named event have been invoked. It installs a transient handler
// intercepting the next occurrence of the event (marking it AlertDone) and
// one for the corresponding "<name>_done" notification, yields nil until the
// notification arrives, then cleans up.
func (m *Manager) WaitEvent(name string, channels ...any) Generator {
	if len(channels) == 0 {
		channels = []any{Wildcard}
	}
	return &waiter{m: m, name: name, channels: channels}
}

type waiter struct {
	m        *Manager
	name     string
	channels []any

	installed bool
	finished  bool
	run       bool
	flag      bool
	src       *Event

	onEvent []*Handler
	onDone  []*Handler
}

func (w *waiter) Next(in any) (any, bool, error) {
	if w.finished {
		return nil, true, nil
	}
	if !w.installed {
		w.installed = true
		for _, ch := range w.channels {
			he := NewHandler(w.intercept, WithNames(w.name), WithChannel(ch))
			hd := NewHandler(w.doneSeen, WithNames(w.name+DoneSuffix), WithChannel(ch))
			w.m.AddHandler(he)
			w.m.AddHandler(hd)
			w.onEvent = append(w.onEvent, he)
			w.onDone = append(w.onDone, hd)
		}
	}
	if !w.flag {
		return nil, false, nil
	}
	for _, h := range w.onDone {
		w.m.RemoveHandler(h)
	}
	w.finished = true
	return nil, true, nil
}

func (w *waiter) intercept(e *Event) (any, error) {
	if !w.run {
		for _, h := range w.onEvent {
			w.m.RemoveHandler(h, w.name)
		}
		e.AlertDone = true
		w.run = true
		w.src = e
	}
	return nil, nil
}

func (w *waiter) doneSeen(e *Event) (any, error) {
	if len(e.Args) > 0 {
		if src, ok := e.Args[0].(*Event); ok && src == w.src {
			w.flag = true
		}
	}
	return nil, nil
}

// CallEvent fires the event on the given channels and returns a generator
// that suspends its caller until the event has been fully dispatched. The
// final step yields a CallValue carrying the event's value, which the
// scheduler hands back to the caller as the resumption value. Yield the
// result from a suspended handler:
//
//	h := reactor.NewHandler(func(e *reactor.Event) (any, error) {
//		called := false
//		return reactor.GeneratorFunc(func(in any) (any, bool, error) {
//			if !called {
//				called = true
//				return m.CallEvent(reactor.NewEvent("sub")), false, nil
//			}
//			if v, ok := in.(*reactor.Value); ok {
//				return v.Result(), true, nil
//			}
//			return nil, true, nil
//		}), nil
//	})
type callEvent struct {
	m        *Manager
	event    *Event
	channels []any

	value    *Value
	wait     Generator
	finished bool
}

// CallEvent builds the call generator; the fire happens on the first
// advance, matching the lazy start of a suspended handler.
func (m *Manager) CallEvent(e *Event, channels ...any) Generator {
	return &callEvent{m: m, event: e, channels: channels}
}

func (c *callEvent) Next(in any) (any, bool, error) {
	if c.finished {
		return nil, true, nil
	}
	if c.wait == nil {
		c.value = c.m.Fire(c.event, c.channels...)
		c.wait = c.m.WaitEvent(c.event.Name, c.event.Channels...)
	}
	out, done, err := c.wait.Next(nil)
	if err != nil {
		return nil, false, err
	}
	if !done {
		return out, false, nil
	}
	c.finished = true
	return CallValue{Value: c.value}, false, nil
}
