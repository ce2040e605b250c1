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

// Package connmgr tracks incoming listeners this instance maintains
// against relays and direct endpoints (spec.md §4.9): each listener is
// keyed by (endpoint, localPublicKey), refcounted across callers that all
// want the same listener running, and the instance is "online" only once
// every relay listener it should have is actually Listening.
package connmgr

import (
	"context"
	"sync"

	"github.com/refinio/onecore/internal/eventbus"
)

// ListenerKey identifies one logical listener.
type ListenerKey struct {
	Endpoint      string
	LocalPublicKey [32]byte
}

// State is a listener's current connectivity.
type State int

const (
	StateConnecting State = iota
	StateListening
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	default:
		return "connecting"
	}
}

// Listener is one tracked (endpoint, key) pair with its refcount and
// current state. Stop is called once the refcount drops to zero.
type Listener struct {
	Key      ListenerKey
	State    State
	refcount int
	isRelay  bool
	Stop     func()
}

// StateChange is emitted on Manager.Changes whenever a listener's State
// transitions.
type StateChange struct {
	Key   ListenerKey
	State State
}

// Manager owns the full set of listeners this instance maintains.
type Manager struct {
	mu        sync.Mutex
	listeners map[ListenerKey]*Listener

	Changes eventbus.Event[StateChange]
}

// New creates an empty Manager.
func New() *Manager {
	return &Manager{listeners: make(map[ListenerKey]*Listener)}
}

// Acquire increments the refcount for key, starting it via start if this
// is the first caller to want it. isRelay marks the listener as one of
// the ones Online() requires to be Listening.
func (m *Manager) Acquire(key ListenerKey, isRelay bool, start func() (stop func(), err error)) (*Listener, error) {
	m.mu.Lock()
	l, ok := m.listeners[key]
	if ok {
		l.refcount++
		m.mu.Unlock()
		return l, nil
	}
	m.mu.Unlock()

	stop, err := start()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	l = &Listener{Key: key, State: StateConnecting, refcount: 1, isRelay: isRelay, Stop: stop}
	m.listeners[key] = l
	m.mu.Unlock()
	return l, nil
}

// Release decrements key's refcount, stopping and removing the listener
// once it reaches zero.
func (m *Manager) Release(key ListenerKey) {
	m.mu.Lock()
	l, ok := m.listeners[key]
	if !ok {
		m.mu.Unlock()
		return
	}
	l.refcount--
	if l.refcount > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.listeners, key)
	m.mu.Unlock()

	if l.Stop != nil {
		l.Stop()
	}
	m.setState(l, StateStopped)
}

// SetState transitions key's state, e.g. once the underlying dial/accept
// loop confirms it is actually listening.
func (m *Manager) SetState(key ListenerKey, state State) {
	m.mu.Lock()
	l, ok := m.listeners[key]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.setState(l, state)
}

func (m *Manager) setState(l *Listener, state State) {
	m.mu.Lock()
	l.State = state
	m.mu.Unlock()
	m.Changes.EmitAll(context.Background(), StateChange{Key: l.Key, State: state})
}

// Online reports whether every relay listener this instance has acquired
// is currently Listening. An instance with no relay listeners at all is
// considered online (it relies solely on direct connections).
func (m *Manager) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.listeners {
		if l.isRelay && l.State != StateListening {
			return false
		}
	}
	return true
}

// Listeners returns a snapshot of every tracked listener's key and state.
func (m *Manager) Listeners() []StateChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StateChange, 0, len(m.listeners))
	for _, l := range m.listeners {
		out = append(out, StateChange{Key: l.Key, State: l.State})
	}
	return out
}
