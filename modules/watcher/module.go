// Package watcher provides a filesystem event source for the reactor
// kernel, backed by fsnotify. Filesystem notifications arrive on a foreign
// goroutine and are fired into the kernel through the thread-safe fire path,
// which wakes the root if it is sleeping idle.
package watcher

import (
	"fmt"

	"github.com/GoCodeAlone/reactor"
	"github.com/fsnotify/fsnotify"
)

// Event names fired by the watcher. Args: the affected path; WatchError
// carries the error instead.
const (
	FileCreated  = "file_created"
	FileModified = "file_modified"
	FileRemoved  = "file_removed"
	FileRenamed  = "file_renamed"
	WatchError   = "watch_error"
)

// Watcher is a component that watches filesystem paths and fires kernel
// events for changes. The pump starts when the tree it is registered into
// starts, and shuts down with it.
type Watcher struct {
	*reactor.Manager

	paths    []string
	channels []any

	fsw     *fsnotify.Watcher
	stopped chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// OnChannels sets the channels change events are fired on; the default is
// the component's channel resolution.
func OnChannels(channels ...any) Option {
	return func(w *Watcher) { w.channels = channels }
}

// New creates a watcher for the given paths. Watching begins once the tree
// the component is registered into fires "started".
func New(paths []string, opts ...Option) *Watcher {
	w := &Watcher{
		Manager: reactor.New(reactor.WithName("watcher")),
		paths:   paths,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.AddHandler(reactor.NewHandler(w.onStarted, reactor.WithNames(reactor.EventStarted)))
	w.AddHandler(reactor.NewHandler(w.onStopped, reactor.WithNames(reactor.EventStopped)))
	return w
}

func (w *Watcher) onStarted(e *reactor.Event) (any, error) {
	if w.fsw != nil {
		return nil, nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	for _, path := range w.paths {
		if err := fsw.Add(path); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watcher: watch %s: %w", path, err)
		}
	}
	w.fsw = fsw
	w.stopped = make(chan struct{})
	go w.pump(fsw, w.stopped)
	return nil, nil
}

func (w *Watcher) onStopped(e *reactor.Event) (any, error) {
	w.Close()
	return nil, nil
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() {
	if w.fsw == nil {
		return
	}
	close(w.stopped)
	_ = w.fsw.Close()
	w.fsw = nil
}

// pump translates fsnotify notifications into kernel events. It runs on its
// own goroutine; Fire serializes the queue append and wakes the root.
func (w *Watcher) pump(fsw *fsnotify.Watcher, stopped chan struct{}) {
	for {
		select {
		case <-stopped:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if name := eventName(ev.Op); name != "" {
				w.Fire(reactor.NewEvent(name, ev.Name), w.channels...)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.Fire(reactor.NewEvent(WatchError, err), w.channels...)
		}
	}
}

func eventName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return FileCreated
	case op.Has(fsnotify.Write):
		return FileModified
	case op.Has(fsnotify.Remove):
		return FileRemoved
	case op.Has(fsnotify.Rename):
		return FileRenamed
	default:
		return ""
	}
}
