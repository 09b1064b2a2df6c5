// Package web provides an HTTP bridge for the reactor kernel: incoming
// requests are fired into the event tree and the response is the event's
// settled value. Requests arrive on net/http goroutines; the bridge relies
// on the thread-safe fire path and the value's Done channel to hand work to
// the executing goroutine and wait for the result.
package web

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/GoCodeAlone/reactor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Request kwarg keys populated on every bridged event.
const (
	KwargMethod = "method"
	KwargPath   = "path"
	KwargQuery  = "query"
	KwargBody   = "body"
)

// Bridge is a component exposing kernel events over HTTP. Mount routes with
// Handle, then serve Router with any http.Server. The bridge only works
// against a running tree; with no run loop draining the queue every request
// times out.
type Bridge struct {
	*reactor.Manager

	router  chi.Router
	timeout time.Duration
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithTimeout bounds how long a request waits for its event to settle.
// The default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.timeout = d }
}

// New creates an HTTP bridge component.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		Manager: reactor.New(reactor.WithName("web")),
		router:  chi.NewRouter(),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.router.Use(middleware.Recoverer)
	return b
}

// Router returns the chi router for mounting into an http.Server.
func (b *Bridge) Router() chi.Router { return b.router }

// Handle routes the given method and pattern to a kernel event: each request
// fires eventName on the given channels with the request details in Kwargs,
// waits for the value to settle, and writes the result back. A failed value
// answers 500, a timeout 504.
func (b *Bridge) Handle(method, pattern, eventName string, channels ...any) {
	b.router.MethodFunc(method, pattern, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		e := reactor.NewEvent(eventName)
		e.Kwargs = map[string]any{
			KwargMethod: r.Method,
			KwargPath:   r.URL.Path,
			KwargQuery:  r.URL.RawQuery,
			KwargBody:   string(body),
		}
		value := b.Fire(e, channels...)

		timeout := time.NewTimer(b.timeout)
		defer timeout.Stop()
		select {
		case <-value.Done():
		case <-r.Context().Done():
			return
		case <-timeout.C:
			http.Error(w, "event did not settle", http.StatusGatewayTimeout)
			return
		}

		if value.Errors() {
			http.Error(w, "handler failed", http.StatusInternalServerError)
			return
		}
		writeResult(w, value.Result())
	})
}

func writeResult(w http.ResponseWriter, result any) {
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if s, ok := result.(string); ok {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(s))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
