// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package transport

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/refinio/onecore/internal/queue"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// Connection is a bidirectional message channel over a websocket, with an
// ordered plugin stack transforming every event it sends or receives.
// Plugins are stored outer-to-inner; an incoming event from the socket is
// fed through the stack forwards (index 0 first), an outgoing event from
// the application is fed through backwards (last index first), matching
// spec.md §4.5's "outermost-first -> innermost" rule.
type Connection struct {
	conn    *websocket.Conn
	plugins []Plugin

	mu       sync.Mutex
	closed   bool
	incoming *queue.Blocking[Event]

	readLoopDone chan struct{}
	stopTickers  []func()
}

// Tickable is implemented by plugins that run their own background
// watchdogs (KeepalivePlugin, PingPongPlugin) instead of reacting purely
// to events passing through TransformIncoming/TransformOutgoing.
// NewConnection starts every plugin in the stack that implements it and
// stops them all when the connection closes.
type Tickable interface {
	Start(injectOutgoing, injectIncoming func(Event)) (stop func())
}

// NewConnection wraps conn with the given plugin stack (outer to inner),
// starts the read loop that feeds incoming socket frames through it, and
// starts any Tickable plugin's background watchdogs.
func NewConnection(conn *websocket.Conn, plugins []Plugin) *Connection {
	c := &Connection{
		conn:         conn,
		plugins:      plugins,
		incoming:     queue.New[Event](0),
		readLoopDone: make(chan struct{}),
	}
	go c.readLoop()

	for _, p := range plugins {
		if t, ok := p.(Tickable); ok {
			stop := t.Start(c.injectOutgoing, c.deliverIncoming)
			c.stopTickers = append(c.stopTickers, stop)
		}
	}
	return c
}

// injectOutgoing writes evt directly to the socket, bypassing the plugin
// stack, for use by a Tickable plugin's own pulse/probe frames.
func (c *Connection) injectOutgoing(evt Event) {
	c.writeRaw(evt)
}

func (c *Connection) readLoop() {
	defer close(c.readLoopDone)
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.deliverIncoming(ClosedEvent(err.Error(), "socket"))
			return
		}
		var evt Event
		switch msgType {
		case websocket.TextMessage:
			evt = TextEvent(string(data))
		case websocket.BinaryMessage:
			evt = BinaryEvent(data)
		default:
			continue
		}
		c.deliverIncoming(evt)
	}
}

func (c *Connection) deliverIncoming(evt Event) {
	out, extra, err := c.runIncoming(evt)
	if err != nil {
		c.incoming.Add(ClosedEvent(err.Error(), "pipeline"))
		return
	}
	for _, e := range extra {
		c.writeRaw(e)
	}
	if out != nil {
		if out.Kind == EventClose {
			c.Close(out.Reason, out.Terminate)
			return
		}
		c.incoming.Add(*out)
	}
}

// runIncoming feeds evt through the plugin stack outer (index 0) to inner.
func (c *Connection) runIncoming(evt Event) (*Event, []Event, error) {
	cur := &evt
	var allExtra []Event
	for _, p := range c.plugins {
		if cur == nil {
			break
		}
		out, extra, err := p.TransformIncoming(*cur)
		if err != nil {
			return nil, nil, err
		}
		allExtra = append(allExtra, extra...)
		cur = out
	}
	return cur, allExtra, nil
}

// runOutgoing feeds evt through the plugin stack inner to outer (reverse
// of the incoming order), matching spec.md §4.5.
func (c *Connection) runOutgoing(evt Event) (*Event, []Event, error) {
	cur := &evt
	var allExtra []Event
	for i := len(c.plugins) - 1; i >= 0; i-- {
		if cur == nil {
			break
		}
		out, extra, err := c.plugins[i].TransformOutgoing(*cur)
		if err != nil {
			return nil, nil, err
		}
		allExtra = append(allExtra, extra...)
		cur = out
	}
	return cur, allExtra, nil
}

// Send pushes evt through the outgoing pipeline and writes whatever
// remains (if anything) to the socket, plus any events the plugins
// injected along the way.
func (c *Connection) Send(evt Event) error {
	out, extra, err := c.runOutgoing(evt)
	if err != nil {
		return err
	}
	for _, e := range extra {
		if err := c.writeRaw(e); err != nil {
			return err
		}
	}
	if out == nil {
		return nil
	}
	return c.writeRaw(*out)
}

func (c *Connection) writeRaw(evt Event) error {
	switch evt.Kind {
	case EventMessageText:
		return c.conn.WriteMessage(websocket.TextMessage, []byte(evt.Text))
	case EventMessageBinary:
		return c.conn.WriteMessage(websocket.BinaryMessage, evt.Bytes)
	case EventClose:
		return c.Close(evt.Reason, evt.Terminate)
	default:
		return nil
	}
}

// WaitForMessage blocks until the next message event (text or binary)
// exits the incoming pipeline, or ctx is done.
func (c *Connection) WaitForMessage(ctx context.Context) (Event, error) {
	for {
		evt, err := c.incoming.Remove(ctx)
		if err != nil {
			return Event{}, err
		}
		switch evt.Kind {
		case EventMessageText, EventMessageBinary:
			return evt, nil
		case EventClosed:
			return Event{}, onecoreerrors.ConnectionClosed(onecoreerrors.New(onecoreerrors.KindProtocolError, evt.Reason))
		}
	}
}

// Close terminates the underlying socket. terminate=true means the peer
// misbehaved (e.g. a missed ping/pong round trip or keepalive timeout)
// rather than a graceful shutdown.
func (c *Connection) Close(reason string, terminate bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	tickers := c.stopTickers
	c.mu.Unlock()

	for _, stop := range tickers {
		stop()
	}
	c.incoming.CancelPendingPromises(onecoreerrors.ConnectionClosed(onecoreerrors.New(onecoreerrors.KindProtocolError, reason)))
	return c.conn.Close()
}

// Closed reports whether Close has already run.
func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
