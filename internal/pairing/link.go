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

package pairing

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// EncodeLink packs an invitation into the single opaque string exchanged
// out of band (a link or QR code payload): the redeemer runs in a
// different process than the issuer's Manager, so the invitation's
// endpoint and public key travel inside the link itself rather than
// through a shared table.
func EncodeLink(inv Invitation) string {
	raw := strings.Join([]string{inv.Token, inv.Endpoint, hex.EncodeToString(inv.PublicKey[:])}, "\n")
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeLink reverses EncodeLink, recovering the token, dial endpoint, and
// issuer public key an accept-invite caller needs to connect.
func DecodeLink(link string) (token, endpoint string, publicKey [32]byte, err error) {
	raw, err := base64.URLEncoding.DecodeString(link)
	if err != nil {
		return "", "", publicKey, onecoreerrors.New(onecoreerrors.KindUnknownToken, "pairing: malformed invitation link")
	}
	parts := strings.Split(string(raw), "\n")
	if len(parts) != 3 {
		return "", "", publicKey, onecoreerrors.New(onecoreerrors.KindUnknownToken, "pairing: malformed invitation link")
	}
	keyBytes, err := hex.DecodeString(parts[2])
	if err != nil || len(keyBytes) != 32 {
		return "", "", publicKey, onecoreerrors.New(onecoreerrors.KindUnknownToken, "pairing: malformed invitation public key")
	}
	copy(publicKey[:], keyBytes)
	return parts[0], parts[1], publicKey, nil
}
