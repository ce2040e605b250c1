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

package handshake

import (
	"encoding/hex"
	"encoding/json"

	"github.com/gorilla/websocket"

	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// The three messages below are exchanged as websocket text frames, JSON
// encoded with hex fields, matching the chum wire convention (internal/chum
// Encode/Decode) so a packet capture reads the same way across both
// protocols. This runs directly on *websocket.Conn, before a
// transport.Connection (and its plugin stack, fixed at construction) ever
// exists.
type wireChallenge struct {
	PublicKey string `json:"publicKey"`
	Challenge string `json:"challenge"`
}

type wireResponse struct {
	Challenge  string `json:"challenge"`
	SealedEcho string `json:"sealedEcho"`
}

type wireFinal struct {
	SealedEcho string `json:"sealedEcho"`
}

func writeJSON(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func readJSON(conn *websocket.Conn, v any) error {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// RunInitiator performs the handshake as the side that already knows the
// peer's long-term public key (the accept-invite dialer, which learned it
// out of band from the invitation). precompute derives the DH shared
// secret for remotePublicKey (keychain.CryptoApi.PrecomputeShared).
func RunInitiator(conn *websocket.Conn, localPublicKey, remotePublicKey [32]byte, precompute func(remotePublicKey [32]byte) ([32]byte, error)) (Session, error) {
	shared, err := precompute(remotePublicKey)
	if err != nil {
		return Session{}, err
	}

	challenge1, err := NewChallenge()
	if err != nil {
		return Session{}, err
	}
	if err := writeJSON(conn, wireChallenge{
		PublicKey: hex.EncodeToString(localPublicKey[:]),
		Challenge: hex.EncodeToString(challenge1[:]),
	}); err != nil {
		return Session{}, onecoreerrors.Wrap(onecoreerrors.KindProtocolError, "handshake: send challenge", err)
	}

	var resp wireResponse
	if err := readJSON(conn, &resp); err != nil {
		return Session{}, onecoreerrors.Wrap(onecoreerrors.KindProtocolError, "handshake: read response", err)
	}
	sealedEcho, err := hex.DecodeString(resp.SealedEcho)
	if err != nil {
		return Session{}, onecoreerrors.New(onecoreerrors.KindProtocolError, "handshake: malformed sealed echo")
	}
	ok, err := OpenChallenge(&shared, sealedEcho, challenge1)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, onecoreerrors.ErrDecryptFailed
	}

	challengeBytes, err := hex.DecodeString(resp.Challenge)
	if err != nil || len(challengeBytes) != challengeSize {
		return Session{}, onecoreerrors.New(onecoreerrors.KindProtocolError, "handshake: malformed challenge")
	}
	var challenge2 [challengeSize]byte
	copy(challenge2[:], challengeBytes)

	nonce, err := RandomNonce()
	if err != nil {
		return Session{}, err
	}
	sealedEcho2 := SealChallenge(&shared, challenge2, nonce)
	if err := writeJSON(conn, wireFinal{SealedEcho: hex.EncodeToString(sealedEcho2)}); err != nil {
		return Session{}, onecoreerrors.Wrap(onecoreerrors.KindProtocolError, "handshake: send final", err)
	}

	return Session{SharedKey: shared}, nil
}

// RunResponder performs the handshake as the side that does not yet know
// the peer's identity; it learns remotePublicKey from the initiator's
// first message and returns it alongside the derived Session so the
// caller can look up whatever local policy (access grants, invitation
// table) governs that peer.
func RunResponder(conn *websocket.Conn, precompute func(remotePublicKey [32]byte) ([32]byte, error)) (Session, [32]byte, error) {
	var req wireChallenge
	if err := readJSON(conn, &req); err != nil {
		return Session{}, [32]byte{}, onecoreerrors.Wrap(onecoreerrors.KindProtocolError, "handshake: read challenge", err)
	}
	pubBytes, err := hex.DecodeString(req.PublicKey)
	if err != nil || len(pubBytes) != 32 {
		return Session{}, [32]byte{}, onecoreerrors.New(onecoreerrors.KindProtocolError, "handshake: malformed public key")
	}
	var remotePublicKey [32]byte
	copy(remotePublicKey[:], pubBytes)

	challengeBytes, err := hex.DecodeString(req.Challenge)
	if err != nil || len(challengeBytes) != challengeSize {
		return Session{}, remotePublicKey, onecoreerrors.New(onecoreerrors.KindProtocolError, "handshake: malformed challenge")
	}
	var challenge1 [challengeSize]byte
	copy(challenge1[:], challengeBytes)

	shared, err := precompute(remotePublicKey)
	if err != nil {
		return Session{}, remotePublicKey, err
	}

	challenge2, err := NewChallenge()
	if err != nil {
		return Session{}, remotePublicKey, err
	}
	nonce, err := RandomNonce()
	if err != nil {
		return Session{}, remotePublicKey, err
	}
	sealedEcho1 := SealChallenge(&shared, challenge1, nonce)
	if err := writeJSON(conn, wireResponse{
		Challenge:  hex.EncodeToString(challenge2[:]),
		SealedEcho: hex.EncodeToString(sealedEcho1),
	}); err != nil {
		return Session{}, remotePublicKey, onecoreerrors.Wrap(onecoreerrors.KindProtocolError, "handshake: send response", err)
	}

	var fin wireFinal
	if err := readJSON(conn, &fin); err != nil {
		return Session{}, remotePublicKey, onecoreerrors.Wrap(onecoreerrors.KindProtocolError, "handshake: read final", err)
	}
	sealedEcho2, err := hex.DecodeString(fin.SealedEcho)
	if err != nil {
		return Session{}, remotePublicKey, onecoreerrors.New(onecoreerrors.KindProtocolError, "handshake: malformed final echo")
	}
	ok, err := OpenChallenge(&shared, sealedEcho2, challenge2)
	if err != nil {
		return Session{}, remotePublicKey, err
	}
	if !ok {
		return Session{}, remotePublicKey, onecoreerrors.ErrDecryptFailed
	}

	return Session{SharedKey: shared}, remotePublicKey, nil
}
