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

// Package pairing implements invitation-based device pairing (spec.md
// §4.7): one instance issues a single-use, time-limited invitation token
// identifying an endpoint and a long-term public key; a second instance
// redeems it to establish a connection and run the handshake.
package pairing

import (
	"sync"
	"time"

	"github.com/google/uuid"

	onecoreerrors "github.com/refinio/onecore/pkg/errors"
	"github.com/refinio/onecore/internal/eventbus"
)

// Invitation is the token exchanged out of band (QR code, link) to let a
// second instance connect and pair.
type Invitation struct {
	Token     string
	Endpoint  string
	PublicKey [32]byte
	ExpiresAt time.Time
}

// Expired reports whether the invitation can no longer be redeemed.
func (inv Invitation) Expired(now time.Time) bool {
	return now.After(inv.ExpiresAt)
}

// SuccessEvent is the payload type of Manager.Success, the pairing-completion
// event. Manager's own methods never emit it.
type SuccessEvent struct {
	Token       string
	PeerKey     [32]byte
	Initiator   bool
}

// Manager tracks outstanding invitations this instance has issued and
// carries the Success event for pairing completion.
type Manager struct {
	mu          sync.Mutex
	invitations map[string]Invitation
	ttl         time.Duration

	Success eventbus.Event[SuccessEvent]
}

// NewManager creates a Manager whose invitations are valid for ttl once
// issued.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		invitations: make(map[string]Invitation),
		ttl:         ttl,
	}
}

// Issue creates a new invitation for endpoint/publicKey and remembers it
// until it expires or is redeemed.
func (m *Manager) Issue(endpoint string, publicKey [32]byte) (Invitation, error) {
	token, err := uuid.NewRandom()
	if err != nil {
		return Invitation{}, onecoreerrors.Wrap(onecoreerrors.KindCodecError, "pairing: generate token", err)
	}
	inv := Invitation{
		Token:     token.String(),
		Endpoint:  endpoint,
		PublicKey: publicKey,
		ExpiresAt: time.Now().Add(m.ttl),
	}

	m.mu.Lock()
	m.invitations[inv.Token] = inv
	m.mu.Unlock()
	return inv, nil
}

// Redeem consumes an invitation by token, failing if it is unknown,
// already redeemed, or expired. An invitation can be redeemed exactly
// once: a matching token is deleted from the table whether or not it has
// expired, so a replayed token always fails on the second attempt.
func (m *Manager) Redeem(token string) (Invitation, error) {
	m.mu.Lock()
	inv, ok := m.invitations[token]
	if ok {
		delete(m.invitations, token)
	}
	m.mu.Unlock()

	if !ok {
		return Invitation{}, onecoreerrors.New(onecoreerrors.KindUnknownToken, "pairing: unknown or already-redeemed invitation")
	}
	if inv.Expired(time.Now()) {
		return Invitation{}, onecoreerrors.New(onecoreerrors.KindTokenExpired, "pairing: invitation expired")
	}
	return inv, nil
}

// Revoke removes an invitation before it is redeemed, e.g. on user
// cancellation.
func (m *Manager) Revoke(token string) {
	m.mu.Lock()
	delete(m.invitations, token)
	m.mu.Unlock()
}

// Sweep deletes every invitation that has expired, returning how many
// were removed. Callers run this periodically; it is not triggered
// automatically since the manager owns no timer of its own.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for token, inv := range m.invitations {
		if inv.Expired(now) {
			delete(m.invitations, token)
			removed++
		}
	}
	return removed
}

// Pending reports how many invitations are currently outstanding.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invitations)
}
