// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package chum

import (
	"context"

	"github.com/refinio/onecore/internal/transport"
)

// Peer is the minimal send/receive surface Exporter and Importer need. A
// transport.Connection satisfies it through ConnPeer; tests use an
// in-memory implementation to run exporter and importer against each
// other without a real socket.
type Peer interface {
	Send(msg Message) error
	Receive(ctx context.Context) (Message, error)
}

// ConnPeer adapts a transport.Connection, already authenticated and
// encrypted by internal/handshake, into a chum.Peer.
type ConnPeer struct {
	Conn *transport.Connection
}

func (p *ConnPeer) Send(msg Message) error {
	text, err := Encode(msg)
	if err != nil {
		return err
	}
	return p.Conn.Send(transport.TextEvent(text))
}

func (p *ConnPeer) Receive(ctx context.Context) (Message, error) {
	evt, err := p.Conn.WaitForMessage(ctx)
	if err != nil {
		return Message{}, err
	}
	return Decode(evt.Text)
}
