// Package timer provides time-driven event sources for the reactor kernel.
//
// A Timer fires a prototype event after a delay, optionally repeating at the
// same interval. A CronTimer fires on a cron schedule. Both participate in
// the generate_events protocol: each tick they shrink the poll budget to the
// interval until their next deadline, so the kernel never sleeps past an
// expiry and never busy-waits before one.
package timer

import (
	"time"

	"github.com/GoCodeAlone/reactor"
	"github.com/robfig/cron/v3"
)

// Timer is a component that fires a copy of its prototype event when its
// interval elapses. One-shot by default; with Persist it re-arms after every
// expiry.
type Timer struct {
	*reactor.Manager

	interval time.Duration
	persist  bool
	proto    *reactor.Event
	channels []any

	expiry time.Time
	done   bool
}

// Option configures a Timer.
type Option func(*Timer)

// Persist re-arms the timer after each expiry instead of firing once.
func Persist() Option {
	return func(t *Timer) { t.persist = true }
}

// OnChannels sets the channels expiry events are fired on. Without it the
// prototype's channels (or the component's channel resolution) apply.
func OnChannels(channels ...any) Option {
	return func(t *Timer) { t.channels = channels }
}

// New creates a timer firing a copy of event after interval. Register the
// returned component into a tree to arm it.
func New(interval time.Duration, event *reactor.Event, opts ...Option) *Timer {
	t := &Timer{
		Manager:  reactor.New(reactor.WithName("timer")),
		interval: interval,
		proto:    event,
		expiry:   time.Now().Add(interval),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.AddHandler(reactor.NewHandler(t.generate, reactor.WithNames(reactor.EventGenerateEvents)))
	return t
}

// Reset re-arms the timer for a full interval from now and clears the
// one-shot expired state.
func (t *Timer) Reset() {
	t.expiry = time.Now().Add(t.interval)
	t.done = false
}

// Expired reports whether a one-shot timer has fired.
func (t *Timer) Expired() bool { return t.done }

func (t *Timer) generate(e *reactor.Event) (any, error) {
	g := reactor.GenerateEventsOf(e)
	if g == nil || t.done {
		return nil, nil
	}

	if !time.Now().Before(t.expiry) {
		t.Fire(clone(t.proto), t.channels...)
		if !t.persist {
			t.done = true
			return nil, nil
		}
		t.expiry = t.expiry.Add(t.interval)
	}

	left := time.Until(t.expiry)
	if left < 0 {
		left = 0
	}
	g.ReduceTimeLeft(left)
	return nil, nil
}

// CronTimer is a component that fires a copy of its prototype event on a
// standard five-field cron schedule. Always recurring.
type CronTimer struct {
	*reactor.Manager

	schedule cron.Schedule
	proto    *reactor.Event
	channels []any

	next time.Time
}

// NewCron creates a cron-driven timer. The spec uses the standard cron
// format ("*/5 * * * *") including the @every and @hourly descriptors.
func NewCron(spec string, event *reactor.Event, channels ...any) (*CronTimer, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, err
	}
	t := &CronTimer{
		Manager:  reactor.New(reactor.WithName("cron-timer")),
		schedule: schedule,
		proto:    event,
		channels: channels,
		next:     schedule.Next(time.Now()),
	}
	t.AddHandler(reactor.NewHandler(t.generate, reactor.WithNames(reactor.EventGenerateEvents)))
	return t, nil
}

// Next returns the next scheduled expiry.
func (t *CronTimer) Next() time.Time { return t.next }

func (t *CronTimer) generate(e *reactor.Event) (any, error) {
	g := reactor.GenerateEventsOf(e)
	if g == nil {
		return nil, nil
	}

	now := time.Now()
	if !now.Before(t.next) {
		t.Fire(clone(t.proto), t.channels...)
		t.next = t.schedule.Next(now)
	}

	left := time.Until(t.next)
	if left < 0 {
		left = 0
	}
	g.ReduceTimeLeft(left)
	return nil, nil
}

// clone copies the prototype so every expiry dispatches a fresh event with
// its own value and dispatch state.
func clone(proto *reactor.Event) *reactor.Event {
	e := reactor.NewEvent(proto.Name, proto.Args...)
	e.Kwargs = proto.Kwargs
	e.Channels = proto.Channels
	e.Success = proto.Success
	e.Failure = proto.Failure
	e.Complete = proto.Complete
	e.Notify = proto.Notify
	return e
}
