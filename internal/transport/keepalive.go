// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package transport

import (
	"sync"
	"time"
)

const keepaliveText = "keepalive"

// KeepalivePlugin runs two independent watchdogs (spec.md §4.5): a
// send-pulse that emits a "keepalive" text frame every Timer interval
// unless some other frame was sent more recently, and a detect-pulse that
// requests the connection be force-closed if no frame (of any kind) has
// been received within Timeout. Application text that happens to equal
// "keepalive" is escaped the same way FragmentationPlugin escapes its
// sentinels, so the two plugins compose regardless of stack order.
type KeepalivePlugin struct {
	Timer   time.Duration
	Timeout time.Duration

	mu           sync.Mutex
	lastSent     time.Time
	lastReceived time.Time
	stop         chan struct{}
	inject       func(Event)
}

// NewKeepalivePlugin creates a plugin with the given send and detect
// intervals.
func NewKeepalivePlugin(timer, timeout time.Duration) *KeepalivePlugin {
	return &KeepalivePlugin{Timer: timer, Timeout: timeout}
}

func (k *KeepalivePlugin) Name() string { return "keepalive" }

// Start launches the two watchdogs. inject delivers events as though they
// arrived from the corresponding side of the pipeline: send-pulse frames
// go out via injectOutgoing, detect-pulse close requests go in via
// injectIncoming. Returns a stop function.
func (k *KeepalivePlugin) Start(injectOutgoing, injectIncoming func(Event)) (stop func()) {
	k.mu.Lock()
	now := time.Now()
	k.lastSent = now
	k.lastReceived = now
	k.stop = make(chan struct{})
	stopCh := k.stop
	k.mu.Unlock()

	go k.sendLoop(injectOutgoing, stopCh)
	go k.detectLoop(injectIncoming, stopCh)

	return func() {
		k.mu.Lock()
		if k.stop != nil {
			close(k.stop)
			k.stop = nil
		}
		k.mu.Unlock()
	}
}

func (k *KeepalivePlugin) sendLoop(inject func(Event), stop chan struct{}) {
	ticker := time.NewTicker(k.Timer)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			k.mu.Lock()
			idle := time.Since(k.lastSent) >= k.Timer
			k.mu.Unlock()
			if idle {
				inject(TextEvent(keepaliveText))
			}
		}
	}
}

func (k *KeepalivePlugin) detectLoop(inject func(Event), stop chan struct{}) {
	ticker := time.NewTicker(k.Timeout / 4)
	if k.Timeout/4 <= 0 {
		ticker = time.NewTicker(time.Millisecond)
	}
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			k.mu.Lock()
			expired := time.Since(k.lastReceived) >= k.Timeout
			k.mu.Unlock()
			if expired {
				inject(CloseEvent("keepalive timeout", true))
				return
			}
		}
	}
}

func (k *KeepalivePlugin) TransformIncoming(evt Event) (*Event, []Event, error) {
	k.mu.Lock()
	k.lastReceived = time.Now()
	k.mu.Unlock()

	if evt.Kind == EventMessageText {
		if unescaped, ok := stripEscape(evt.Text); ok {
			return &Event{Kind: EventMessageText, Text: unescaped}, nil, nil
		}
		if evt.Text == keepaliveText {
			return nil, nil, nil
		}
	}
	return &evt, nil, nil
}

// TransformOutgoing resets the send-pulse watchdog on every outgoing frame
// and escapes application text that collides with the keepalive sentinel.
// The watchdog's own pulse frames are written directly to the socket by
// Start's injectOutgoing callback and never pass back through this method,
// so any "keepalive" text seen here is always application data.
func (k *KeepalivePlugin) TransformOutgoing(evt Event) (*Event, []Event, error) {
	k.mu.Lock()
	k.lastSent = time.Now()
	k.mu.Unlock()

	if evt.Kind == EventMessageText && evt.Text == keepaliveText {
		return &Event{Kind: EventMessageText, Text: escapeMarker + evt.Text}, nil, nil
	}
	return &evt, nil, nil
}
