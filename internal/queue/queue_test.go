// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package queue

import (
	"context"
	"testing"
	"time"

	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

func TestAddRemoveFIFO(t *testing.T) {
	q := New[int](0)
	q.Add(1)
	q.Add(2)
	q.Add(3)

	ctx := context.Background()
	for _, want := range []int{1, 2, 3} {
		got, err := q.Remove(ctx)
		if err != nil || got != want {
			t.Fatalf("Remove = %d, %v; want %d, nil", got, err, want)
		}
	}
}

func TestRemoveBlocksUntilAdd(t *testing.T) {
	q := New[string](0)
	ctx := context.Background()

	resultCh := make(chan string, 1)
	go func() {
		v, _ := q.Remove(ctx)
		resultCh <- v
	}()

	time.Sleep(20 * time.Millisecond)
	q.Add("late")

	select {
	case v := <-resultCh:
		if v != "late" {
			t.Fatalf("got %q, want %q", v, "late")
		}
	case <-time.After(time.Second):
		t.Fatal("Remove never returned after Add")
	}
}

func TestRemoveRespectsContextCancellation(t *testing.T) {
	q := New[int](0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Remove(ctx)
	if !onecoreerrors.Is(err, onecoreerrors.KindTimeout) {
		t.Fatalf("expected Timeout, got %v", err)
	}
}

func TestAddFailsWhenFull(t *testing.T) {
	q := New[int](2)
	if err := q.Add(1); err != nil {
		t.Fatalf("Add 1: %v", err)
	}
	if err := q.Add(2); err != nil {
		t.Fatalf("Add 2: %v", err)
	}
	err := q.Add(3)
	if !onecoreerrors.Is(err, onecoreerrors.KindQueueFull) {
		t.Fatalf("expected QueueFull, got %v", err)
	}
}

func TestAddSortedOrdering(t *testing.T) {
	q := New[int](0)
	less := func(a, b int) bool { return a < b }
	q.AddSorted(5, less)
	q.AddSorted(1, less)
	q.AddSorted(3, less)

	ctx := context.Background()
	for _, want := range []int{1, 3, 5} {
		got, _ := q.Remove(ctx)
		if got != want {
			t.Fatalf("Remove = %d, want %d", got, want)
		}
	}
}

func TestCancelPendingPromisesFailsBlockedRemove(t *testing.T) {
	q := New[int](0)
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Remove(ctx)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	sentinel := onecoreerrors.New(onecoreerrors.KindConnectionClosed, "connection torn down")
	q.CancelPendingPromises(sentinel)

	select {
	case err := <-errCh:
		if err != sentinel {
			t.Fatalf("got %v, want %v", err, sentinel)
		}
	case <-time.After(time.Second):
		t.Fatal("Remove never returned after CancelPendingPromises")
	}
}

func TestCancelPendingPromisesFailsFutureAdd(t *testing.T) {
	q := New[int](0)
	q.CancelPendingPromises(onecoreerrors.ErrConnectionClosed)
	if err := q.Add(1); !onecoreerrors.Is(err, onecoreerrors.KindConnectionClosed) {
		t.Fatalf("expected ConnectionClosed, got %v", err)
	}
}
