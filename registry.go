// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
	"vawter.tech/scope/internal/safe"
)

// A Handler requests that the unit of work owning a scope stop.
type Handler func()

// A Registry maps context ids to the stop handlers of live
// [Cancellable] scopes so that other goroutines can address them with
// [Registry.Signal]. A program should create a single Registry at
// startup and pass it to every Cancellable that should be reachable.
//
// All methods on a Registry are safe for concurrent use.
type Registry struct {
	logger *zap.Logger

	mu struct {
		sync.Mutex
		entries map[string]*entry
	}
}

// An entry is compared by identity so that a scope only ever removes
// its own registration.
type entry struct {
	handler Handler
	id      string
}

// NewRegistry returns an empty Registry. Only [WithLogger] is
// meaningful here.
func NewRegistry(opts ...Option) *Registry {
	cfg := newConfig(opts)
	cfg.Sanitize(nil, "registry")
	ret := &Registry{logger: cfg.logger}
	ret.mu.entries = make(map[string]*entry)
	return ret
}

// IDs returns the sorted ids of all live registrations.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	ret := make([]string, 0, len(r.mu.entries))
	for id := range r.mu.entries {
		ret = append(ret, id)
	}
	r.mu.Unlock()
	slices.Sort(ret)
	return ret
}

// Len returns the number of live registrations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mu.entries)
}

// Register associates the handler with the id. An error matching
// [ErrDuplicateSubscriber] is returned if the id is already live.
func (r *Registry) Register(id string, h Handler) error {
	_, err := r.register(id, h)
	return err
}

// Signal invokes the handler registered under the id and reports
// whether one was found. Signaling an unknown id, including one whose
// scope has already exited, is a no-op.
func (r *Registry) Signal(id string) bool {
	r.mu.Lock()
	e, ok := r.mu.entries[id]
	r.mu.Unlock()
	if !ok {
		return false
	}

	// Handlers run outside the mutex so they may call back into the
	// Registry.
	if err := safe.Call(e.handler); err != nil {
		r.logger.Error("cancel handler failed", zap.String("id", id), zap.Error(err))
	}
	return true
}

// Unregister removes any registration for the id.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	_, ok := r.mu.entries[id]
	delete(r.mu.entries, id)
	r.mu.Unlock()

	if ok {
		r.logger.Debug("cancel subscriber removed", zap.String("id", id))
	}
}

// register performs the uniqueness check and the insert in a single
// critical section.
func (r *Registry) register(id string, h Handler) (*entry, error) {
	if h == nil {
		return nil, fmt.Errorf("nil handler for %q", id)
	}
	e := &entry{handler: h, id: id}

	r.mu.Lock()
	_, dup := r.mu.entries[id]
	if !dup {
		r.mu.entries[id] = e
	}
	r.mu.Unlock()

	if dup {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateSubscriber, id)
	}
	r.logger.Debug("cancel subscriber added", zap.String("id", id))
	return e, nil
}

// unregister removes the entry only if it is still the live
// registration for its id.
func (r *Registry) unregister(e *entry) {
	r.mu.Lock()
	found := r.mu.entries[e.id] == e
	if found {
		delete(r.mu.entries, e.id)
	}
	r.mu.Unlock()

	if found {
		r.logger.Debug("cancel subscriber removed", zap.String("id", e.id))
	}
}

// CancelContext signals the [Cancellable] scope registered under the
// id. It is shorthand for [Registry.Signal].
func CancelContext(r *Registry, id string) bool {
	return r.Signal(id)
}
