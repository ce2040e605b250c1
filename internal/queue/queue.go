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

// Package queue implements the FIFO blocking hand-off spec.md §4.7
// describes for connection pipeline message delivery: producers Add items
// without blocking (failing QueueFull once maxQueueLength is reached) and
// consumers Remove them, blocking until one is available, with
// context-aware cancellation and a bulk CancelPendingPromises escape hatch
// for tearing down a connection.
package queue

import (
	"container/list"
	"context"
	"sync"

	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// Blocking is a FIFO queue where Remove blocks until an item is available
// (or its context is done), and Add fails QueueFull once the queue reaches
// maxQueueLength rather than growing unbounded.
type Blocking[T any] struct {
	mu            sync.Mutex
	items         *list.List
	maxLen        int
	notEmpty      chan struct{}
	cancelErr     error
	cancelErrOnce sync.Once
}

// New creates a Blocking queue. maxLen <= 0 means unbounded.
func New[T any](maxLen int) *Blocking[T] {
	return &Blocking[T]{
		items:    list.New(),
		maxLen:   maxLen,
		notEmpty: make(chan struct{}, 1),
	}
}

// Add appends an item to the tail of the queue. It fails QueueFull
// immediately if maxLen is set and already reached, rather than blocking
// the producer (spec.md §4.7 treats a full queue as backpressure the
// caller must observe, not a blocking point for Add).
func (q *Blocking[T]) Add(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelErr != nil {
		return q.cancelErr
	}
	if q.maxLen > 0 && q.items.Len() >= q.maxLen {
		return onecoreerrors.ErrQueueFull
	}
	q.items.PushBack(item)
	q.signalLocked()
	return nil
}

// AddSorted inserts item before the first existing element for which less
// reports true, preserving a caller-defined priority order.
func (q *Blocking[T]) AddSorted(item T, less func(a, b T) bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelErr != nil {
		return q.cancelErr
	}
	if q.maxLen > 0 && q.items.Len() >= q.maxLen {
		return onecoreerrors.ErrQueueFull
	}
	for e := q.items.Front(); e != nil; e = e.Next() {
		if less(item, e.Value.(T)) {
			q.items.InsertBefore(item, e)
			q.signalLocked()
			return nil
		}
	}
	q.items.PushBack(item)
	q.signalLocked()
	return nil
}

func (q *Blocking[T]) signalLocked() {
	select {
	case q.notEmpty <- struct{}{}:
	default:
	}
}

// Remove blocks until an item is available at the head of the queue, ctx
// is done, or CancelPendingPromises has been called.
func (q *Blocking[T]) Remove(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if q.cancelErr != nil {
			err := q.cancelErr
			q.mu.Unlock()
			return zero, err
		}
		if front := q.items.Front(); front != nil {
			q.items.Remove(front)
			q.mu.Unlock()
			return front.Value.(T), nil
		}
		q.mu.Unlock()

		select {
		case <-q.notEmpty:
			continue
		case <-ctx.Done():
			return zero, onecoreerrors.Wrap(onecoreerrors.KindTimeout, "queue: Remove", ctx.Err())
		}
	}
}

// Len returns the number of items currently queued.
func (q *Blocking[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// CancelPendingPromises fails every current and future Remove call with
// err, used when tearing down the connection this queue belongs to.
func (q *Blocking[T]) CancelPendingPromises(err error) {
	q.cancelErrOnce.Do(func() {
		q.mu.Lock()
		q.cancelErr = err
		q.mu.Unlock()
		close(q.notEmpty)
	})
}
