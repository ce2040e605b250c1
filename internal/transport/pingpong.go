// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package transport

import (
	"encoding/json"
	"sync"
	"time"
)

type pingPongMessage struct {
	Command string `json:"command"`
}

var pingJSON, pongJSON []byte

func init() {
	pingJSON, _ = json.Marshal(pingPongMessage{Command: "ping"})
	pongJSON, _ = json.Marshal(pingPongMessage{Command: "pong"})
}

// PingPongPlugin periodically sends {"command":"ping"} and expects a
// {"command":"pong"} reply within Budget; a missed round trip requests a
// terminating close (spec.md §4.5). It is independent of KeepalivePlugin
// so either or both may be active on a connection.
type PingPongPlugin struct {
	Interval time.Duration
	Budget   time.Duration

	mu          sync.Mutex
	awaitingPong bool
	stop        chan struct{}
}

// NewPingPongPlugin creates a plugin pinging every interval, allowing
// budget for the peer's pong before declaring the round trip missed.
func NewPingPongPlugin(interval, budget time.Duration) *PingPongPlugin {
	return &PingPongPlugin{Interval: interval, Budget: budget}
}

func (p *PingPongPlugin) Name() string { return "ping-pong" }

// Start launches the ping loop. injectOutgoing writes ping frames directly
// to the socket; injectIncoming feeds a terminating close request into the
// incoming pipeline if a pong is overdue.
func (p *PingPongPlugin) Start(injectOutgoing, injectIncoming func(Event)) (stop func()) {
	p.mu.Lock()
	p.stop = make(chan struct{})
	stopCh := p.stop
	p.mu.Unlock()

	go p.loop(injectOutgoing, injectIncoming, stopCh)

	return func() {
		p.mu.Lock()
		if p.stop != nil {
			close(p.stop)
			p.stop = nil
		}
		p.mu.Unlock()
	}
}

func (p *PingPongPlugin) loop(injectOutgoing, injectIncoming func(Event), stop chan struct{}) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.awaitingPong {
				p.mu.Unlock()
				injectIncoming(CloseEvent("ping/pong round trip missed", true))
				return
			}
			p.awaitingPong = true
			p.mu.Unlock()
			injectOutgoing(TextEvent(string(pingJSON)))

			time.AfterFunc(p.Budget, func() {
				p.mu.Lock()
				overdue := p.awaitingPong
				p.mu.Unlock()
				if overdue {
					select {
					case <-stop:
					default:
						injectIncoming(CloseEvent("ping/pong round trip missed", true))
					}
				}
			})
		}
	}
}

func (p *PingPongPlugin) TransformIncoming(evt Event) (*Event, []Event, error) {
	if evt.Kind != EventMessageText {
		return &evt, nil, nil
	}
	var msg pingPongMessage
	if json.Unmarshal([]byte(evt.Text), &msg) == nil {
		switch msg.Command {
		case "ping":
			return nil, []Event{TextEvent(string(pongJSON))}, nil
		case "pong":
			p.mu.Lock()
			p.awaitingPong = false
			p.mu.Unlock()
			return nil, nil, nil
		}
	}
	return &evt, nil, nil
}

func (p *PingPongPlugin) TransformOutgoing(evt Event) (*Event, []Event, error) {
	return &evt, nil, nil
}
