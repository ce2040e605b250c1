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

// Package transport implements the connection pipeline (spec.md §4.5): a
// Connection wrapping a gorilla/websocket.Conn, with an ordered stack of
// pure event transformers applied outer-to-inner on incoming events and
// inner-to-outer on outgoing ones. Each plugin may pass an event through
// unchanged, replace it, swallow it (returning nil), or inject additional
// events of its own.
package transport

// EventKind tags the four event shapes a Connection's pipeline carries.
type EventKind int

const (
	EventOpened EventKind = iota
	EventMessageText
	EventMessageBinary
	EventClose
	EventClosed
)

// Event is the uniform value every pipeline plugin transforms. Only the
// fields relevant to Kind are meaningful; the rest are zero.
type Event struct {
	Kind EventKind

	Text  string
	Bytes []byte

	// Close/Closed fields.
	Reason    string
	Terminate bool
	Origin    string
}

// TextEvent builds an EventMessageText event.
func TextEvent(text string) Event { return Event{Kind: EventMessageText, Text: text} }

// BinaryEvent builds an EventMessageBinary event.
func BinaryEvent(b []byte) Event { return Event{Kind: EventMessageBinary, Bytes: b} }

// CloseEvent builds an EventClose event requesting the connection close.
func CloseEvent(reason string, terminate bool) Event {
	return Event{Kind: EventClose, Reason: reason, Terminate: terminate}
}

// ClosedEvent builds an EventClosed notification event.
func ClosedEvent(reason, origin string) Event {
	return Event{Kind: EventClosed, Reason: reason, Origin: origin}
}
