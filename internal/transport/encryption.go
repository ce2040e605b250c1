// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package transport

import (
	"encoding/binary"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/refinio/onecore/internal/concurrent"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// EncryptionPlugin wraps every outgoing frame in a nacl/secretbox sealed
// binary frame and unwraps incoming ones, using a nonce built from a
// monotonically increasing counter. The two ends of a connection partition
// the counter space by parity (initiator even, acceptor odd) so neither
// side can ever reuse a nonce under the shared session key the handshake
// derived (spec.md §4.5, §4.6). Plaintext is padded to the next multiple
// of PadTo bytes before sealing, so frame length alone does not leak the
// application message's exact size.
type EncryptionPlugin struct {
	SessionKey *[32]byte
	PadTo      int
	// Parity is 0 for the initiator (even counters) or 1 for the acceptor
	// (odd counters).
	Parity uint64

	sendCounter *concurrent.AtomicUint64
	mu          sync.Mutex
	recvSeen    map[uint64]struct{}
}

// NewEncryptionPlugin creates a plugin sealing frames under sessionKey.
// parity must be 0 or 1 and must differ between the two ends of one
// connection. padTo <= 0 disables padding.
func NewEncryptionPlugin(sessionKey *[32]byte, parity uint64, padTo int) *EncryptionPlugin {
	return &EncryptionPlugin{
		SessionKey:  sessionKey,
		PadTo:       padTo,
		Parity:      parity % 2,
		sendCounter: concurrent.NewAtomicUint64(0),
		recvSeen:    make(map[uint64]struct{}),
	}
}

func (e *EncryptionPlugin) Name() string { return "encryption" }

func (e *EncryptionPlugin) nextNonce() (*[24]byte, uint64, error) {
	if e.sendCounter.Load() >= (1<<53)-2 {
		return nil, 0, onecoreerrors.ErrNonceExhausted
	}
	counter := e.sendCounter.Add(1) - 1
	counter = counter*2 + e.Parity

	var nonce [24]byte
	binary.BigEndian.PutUint64(nonce[16:], counter)
	return &nonce, counter, nil
}

func pad(data []byte, padTo int) []byte {
	if padTo <= 0 {
		out := make([]byte, 4+len(data))
		binary.BigEndian.PutUint32(out, uint32(len(data)))
		copy(out[4:], data)
		return out
	}
	total := 4 + len(data)
	if rem := total % padTo; rem != 0 {
		total += padTo - rem
	}
	out := make([]byte, total)
	binary.BigEndian.PutUint32(out, uint32(len(data)))
	copy(out[4:], data)
	return out
}

func unpad(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, onecoreerrors.New(onecoreerrors.KindCodecError, "encryption: padded frame too short")
	}
	n := binary.BigEndian.Uint32(data[:4])
	if int(n) > len(data)-4 {
		return nil, onecoreerrors.New(onecoreerrors.KindCodecError, "encryption: padded frame length field out of range")
	}
	return data[4 : 4+n], nil
}

// TransformOutgoing seals text and binary application frames; control
// events (open/close) pass through unencrypted since there is nothing to
// protect and the socket layer needs to see them directly.
func (e *EncryptionPlugin) TransformOutgoing(evt Event) (*Event, []Event, error) {
	var plain []byte
	switch evt.Kind {
	case EventMessageText:
		plain = append([]byte{1}, []byte(evt.Text)...)
	case EventMessageBinary:
		plain = append([]byte{0}, evt.Bytes...)
	default:
		return &evt, nil, nil
	}

	nonce, _, err := e.nextNonce()
	if err != nil {
		return nil, nil, err
	}
	padded := pad(plain, e.PadTo)
	sealed := secretbox.Seal(nonce[:], padded, nonce, e.SessionKey)
	return &Event{Kind: EventMessageBinary, Bytes: sealed}, nil, nil
}

// TransformIncoming reverses TransformOutgoing: every binary frame is
// assumed sealed and is opened, unpadded, and split back into its
// original text/binary kind.
func (e *EncryptionPlugin) TransformIncoming(evt Event) (*Event, []Event, error) {
	if evt.Kind != EventMessageBinary {
		return &evt, nil, nil
	}
	if len(evt.Bytes) < 24 {
		return nil, nil, onecoreerrors.ErrDecryptFailed
	}
	var nonce [24]byte
	copy(nonce[:], evt.Bytes[:24])

	e.mu.Lock()
	counter := binary.BigEndian.Uint64(nonce[16:])
	_, replay := e.recvSeen[counter]
	if !replay {
		e.recvSeen[counter] = struct{}{}
	}
	e.mu.Unlock()
	if replay {
		return nil, nil, onecoreerrors.ErrDecryptFailed
	}

	padded, ok := secretbox.Open(nil, evt.Bytes[24:], &nonce, e.SessionKey)
	if !ok {
		return nil, nil, onecoreerrors.ErrDecryptFailed
	}
	plain, err := unpad(padded)
	if err != nil {
		return nil, nil, err
	}
	if len(plain) == 0 {
		return nil, nil, onecoreerrors.New(onecoreerrors.KindCodecError, "encryption: empty plaintext frame")
	}

	switch plain[0] {
	case 1:
		return &Event{Kind: EventMessageText, Text: string(plain[1:])}, nil, nil
	case 0:
		return &Event{Kind: EventMessageBinary, Bytes: plain[1:]}, nil, nil
	default:
		return nil, nil, onecoreerrors.New(onecoreerrors.KindCodecError, "encryption: unknown frame kind tag")
	}
}
