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

// Package chum implements the object synchronization protocol spec.md §4.7
// runs once a connection is authenticated and encrypted: one side (the
// exporter) walks the accessible roots it holds and offers their objects,
// the other (the importer) requests and stores what it does not already
// have, recursively following references until nothing new remains.
package chum

import (
	"encoding/json"

	"github.com/refinio/onecore/common"
)

// Code identifies a Chum wire message's role: the ten numbered operations
// of spec.md §6's wire table.
type Code int

const (
	// CodeGetProtocolVersion is I→E {} → {version}. Sent first; a mismatch
	// against params.ProtocolVersion is fatal to the session.
	CodeGetProtocolVersion Code = iota + 1
	// CodeGetAccessibleRoots is I→E {} → [{hash,type}].
	CodeGetAccessibleRoots
	// CodeNewAccessibleRootEvent is E→I, pushed unsolicited whenever a root
	// becomes newly accessible to the importer's peer after the initial
	// GetAccessibleRoots snapshot.
	CodeNewAccessibleRootEvent
	// CodeGetObjectChildren is I→E {hash} → [ref]: the reference list of an
	// object, without transferring its body.
	CodeGetObjectChildren
	// CodeGetIdObjectChildren is I→E {idHash} → [ref]: the reference list of
	// an ID-object's current head version, without transferring its body.
	CodeGetIdObjectChildren
	// CodeGetObject is I→E {hash} → microdata text.
	CodeGetObject
	// CodeGetIdObject is I→E {idHash} → the current head version's
	// microdata text; the response's Hash field carries the resolved head
	// hash (what the importer must verify the content against and record
	// via store.SetHead), distinct from the idHash that was requested.
	CodeGetIdObject
	// CodeGetBlob is I→E {hash} → bytes. Serves both BLOB and CLOB content;
	// which store.Kind the bytes land under is decided by the reference
	// variant the caller already knows (the field that pointed at this
	// hash), not by anything in this message.
	CodeGetBlob
	// CodeGetCrdtMetaObject is I→E {hash} → microdata text, for CRDT-meta
	// objects (Access/IdAccess grants) specifically. Handled identically to
	// CodeGetObject on the wire; the distinct code lets either side
	// recognize a CRDT-meta transfer (e.g. for onError scoping) without
	// inspecting the decoded type.
	CodeGetCrdtMetaObject
	// CodeFin is I→E {} — the exporter terminates upon receipt; no reply.
	CodeFin
)

func (c Code) String() string {
	switch c {
	case CodeGetProtocolVersion:
		return "GetProtocolVersion"
	case CodeGetAccessibleRoots:
		return "GetAccessibleRoots"
	case CodeNewAccessibleRootEvent:
		return "NewAccessibleRootEvent"
	case CodeGetObjectChildren:
		return "GetObjectChildren"
	case CodeGetIdObjectChildren:
		return "GetIdObjectChildren"
	case CodeGetObject:
		return "GetObject"
	case CodeGetIdObject:
		return "GetIdObject"
	case CodeGetBlob:
		return "GetBlob"
	case CodeGetCrdtMetaObject:
		return "GetCrdtMetaObject"
	case CodeFin:
		return "Fin"
	default:
		return "Unknown"
	}
}

// Ref describes one reference: the hash it points at, the reference
// variant (spec.md §3's four kinds), and, when known, the referenced
// object's recipe type name.
type Ref struct {
	Hash string              `json:"hash"`
	Kind common.ReferenceKind `json:"kind,omitempty"`
	Type string              `json:"type,omitempty"`
}

// Message is the envelope every Chum frame is serialized as: a JSON object
// with a numeric Code plus whichever payload fields that code uses. Fields
// unused by a given code are omitted (encoding/json's omitempty), matching
// the teacher's wire-message convention of one envelope type carrying every
// variant rather than one Go type per message kind.
type Message struct {
	Code Code `json:"code"`

	Version  int    `json:"version,omitempty"`
	Hash     string `json:"hash,omitempty"`
	Roots    []Ref  `json:"roots,omitempty"`
	Children []Ref  `json:"children,omitempty"`
	Data     []byte `json:"data,omitempty"`

	// Error, when non-empty, marks this message as an error response to
	// whatever Code was requested (the exporter still answers under the
	// same Code; spec.md §4.7's failure semantics treat a missing object as
	// a non-fatal, per-object error the importer logs and continues past).
	Error string `json:"error,omitempty"`
}

// Encode serializes m as the JSON text frame Chum sends over a
// transport.Connection.
func Encode(m Message) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a JSON text frame into a Message.
func Decode(text string) (Message, error) {
	var m Message
	err := json.Unmarshal([]byte(text), &m)
	return m, err
}
