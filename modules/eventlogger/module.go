// Package eventlogger provides a debugging component that logs every event
// dispatched through the tree it is registered into.
package eventlogger

import (
	"github.com/GoCodeAlone/reactor"
)

// EventLogger is a component with a global handler that reports each
// dispatched event through the structured logger. generate_events traffic is
// suppressed unless explicitly included; at one line per tick it drowns out
// everything else.
type EventLogger struct {
	*reactor.Manager

	logger           reactor.Logger
	includeGenerated bool
}

// Option configures an EventLogger.
type Option func(*EventLogger)

// IncludeGenerated also logs the per-tick generate_events poll.
func IncludeGenerated() Option {
	return func(l *EventLogger) { l.includeGenerated = true }
}

// New creates an event logger reporting through logger.
func New(logger reactor.Logger, opts ...Option) *EventLogger {
	l := &EventLogger{
		Manager: reactor.New(reactor.WithName("eventlogger")),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	// Global handler, ahead of application handlers so the log shows the
	// event before its effects.
	l.AddHandler(reactor.NewHandler(l.log, reactor.WithChannel(reactor.Wildcard), reactor.WithPriority(100)))
	return l
}

func (l *EventLogger) log(e *reactor.Event) (any, error) {
	if l.logger == nil {
		return nil, nil
	}
	if e.Name == reactor.EventGenerateEvents && !l.includeGenerated {
		return nil, nil
	}
	l.logger.Debug("event dispatched",
		"event", e.Name,
		"id", e.ID,
		"channels", channelNames(e.Channels),
		"args", len(e.Args),
	)
	return nil, nil
}

func channelNames(channels []any) []string {
	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		switch c := ch.(type) {
		case string:
			names = append(names, c)
		case *reactor.Manager:
			names = append(names, c.Name())
		}
	}
	return names
}
