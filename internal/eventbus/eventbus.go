// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.
//
// The OneCore library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The OneCore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the OneCore library. If not, see <http://www.gnu.org/licenses/>.

// Package eventbus implements the typed multi-listener events spec.md §4.9
// and §4.10 rely on for onConnection/pairingSuccess/onBlobSent-style
// callbacks: any number of listeners can subscribe to an Event[T], and
// emitting it runs them either sequentially (Emit) or concurrently with
// error aggregation (EmitAll) or first-result-wins (EmitRace).
package eventbus

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Listener is one subscriber's callback.
type Listener[T any] func(ctx context.Context, value T) error

// Event is a typed, multi-listener event. The zero value is usable.
type Event[T any] struct {
	mu        sync.RWMutex
	listeners []Listener[T]
}

// Subscribe registers fn to run on every future Emit/EmitAll/EmitRace call,
// returning an unsubscribe function.
func (e *Event[T]) Subscribe(fn Listener[T]) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
	id := len(e.listeners) - 1
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if id < len(e.listeners) {
			e.listeners[id] = nil
		}
	}
}

func (e *Event[T]) snapshot() []Listener[T] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Listener[T], 0, len(e.listeners))
	for _, l := range e.listeners {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

// Emit runs every listener sequentially in subscription order, stopping
// and returning the first error encountered.
func (e *Event[T]) Emit(ctx context.Context, value T) error {
	for _, l := range e.snapshot() {
		if err := l(ctx, value); err != nil {
			return err
		}
	}
	return nil
}

// EmitAll runs every listener concurrently via errgroup.Group, waiting for
// all of them and returning the first error any of them produced (if any).
func (e *Event[T]) EmitAll(ctx context.Context, value T) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range e.snapshot() {
		l := l
		g.Go(func() error { return l(gctx, value) })
	}
	return g.Wait()
}

// EmitRace runs every listener concurrently and returns as soon as the
// first one returns (success or error), leaving the rest to finish in the
// background without affecting the caller.
func (e *Event[T]) EmitRace(ctx context.Context, value T) error {
	listeners := e.snapshot()
	if len(listeners) == 0 {
		return nil
	}
	resultCh := make(chan error, len(listeners))
	for _, l := range listeners {
		l := l
		go func() { resultCh <- l(ctx, value) }()
	}
	return <-resultCh
}

// ListenerCount returns the number of currently subscribed (not yet
// unsubscribed) listeners.
func (e *Event[T]) ListenerCount() int {
	return len(e.snapshot())
}
