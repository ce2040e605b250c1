// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestEmitRunsListenersInOrder(t *testing.T) {
	var e Event[int]
	var order []int
	e.Subscribe(func(ctx context.Context, v int) error {
		order = append(order, v*10+1)
		return nil
	})
	e.Subscribe(func(ctx context.Context, v int) error {
		order = append(order, v*10+2)
		return nil
	})

	if err := e.Emit(context.Background(), 5); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(order) != 2 || order[0] != 51 || order[1] != 52 {
		t.Fatalf("order = %v, want [51 52]", order)
	}
}

func TestEmitStopsOnFirstError(t *testing.T) {
	var e Event[int]
	sentinel := errors.New("boom")
	var secondCalled atomic.Bool

	e.Subscribe(func(ctx context.Context, v int) error { return sentinel })
	e.Subscribe(func(ctx context.Context, v int) error {
		secondCalled.Store(true)
		return nil
	})

	err := e.Emit(context.Background(), 1)
	if err != sentinel {
		t.Fatalf("Emit = %v, want sentinel", err)
	}
	if secondCalled.Load() {
		t.Fatal("Emit should stop at the first error")
	}
}

func TestEmitAllRunsConcurrentlyAndAggregatesError(t *testing.T) {
	var e Event[int]
	var calls atomic.Int32
	sentinel := errors.New("boom")

	e.Subscribe(func(ctx context.Context, v int) error {
		calls.Add(1)
		return nil
	})
	e.Subscribe(func(ctx context.Context, v int) error {
		calls.Add(1)
		return sentinel
	})
	e.Subscribe(func(ctx context.Context, v int) error {
		calls.Add(1)
		return nil
	})

	err := e.EmitAll(context.Background(), 1)
	if err != sentinel {
		t.Fatalf("EmitAll = %v, want sentinel", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3 (errgroup still runs every listener)", calls.Load())
	}
}

func TestEmitRaceReturnsFirstResult(t *testing.T) {
	var e Event[int]
	fast := make(chan struct{})
	slow := make(chan struct{})

	e.Subscribe(func(ctx context.Context, v int) error {
		<-fast
		return nil
	})
	e.Subscribe(func(ctx context.Context, v int) error {
		<-slow
		return errors.New("should not be observed")
	})

	go close(fast)
	err := e.EmitRace(context.Background(), 1)
	if err != nil {
		t.Fatalf("EmitRace = %v, want nil from the fast listener", err)
	}
	close(slow)
}

func TestUnsubscribeRemovesListener(t *testing.T) {
	var e Event[int]
	var called atomic.Bool
	unsubscribe := e.Subscribe(func(ctx context.Context, v int) error {
		called.Store(true)
		return nil
	})
	unsubscribe()

	e.Emit(context.Background(), 1)
	if called.Load() {
		t.Fatal("unsubscribed listener should not be called")
	}
	if e.ListenerCount() != 0 {
		t.Fatalf("ListenerCount = %d, want 0", e.ListenerCount())
	}
}

func TestEmitWithNoListenersIsNoOp(t *testing.T) {
	var e Event[string]
	if err := e.Emit(context.Background(), "x"); err != nil {
		t.Fatalf("Emit with no listeners: %v", err)
	}
	if err := e.EmitAll(context.Background(), "x"); err != nil {
		t.Fatalf("EmitAll with no listeners: %v", err)
	}
	if err := e.EmitRace(context.Background(), "x"); err != nil {
		t.Fatalf("EmitRace with no listeners: %v", err)
	}
}
