// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package chum

import (
	"context"

	"github.com/refinio/onecore/common"
	"github.com/refinio/onecore/internal/access"
	"github.com/refinio/onecore/internal/codec"
	"github.com/refinio/onecore/internal/concurrent"
	"github.com/refinio/onecore/internal/store"
	"github.com/refinio/onecore/params"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// Exporter serves objects to a peer that has already been granted access
// to a set of roots (spec.md §4.7). It tracks which hashes it has already
// sent this session so a peer re-requesting the same hash (e.g. after a
// reconnect mid-sync) is served from local storage rather than re-counted,
// matching the protocol's at-most-once delivery guarantee.
type Exporter struct {
	st  *store.Store
	reg *codec.Registry

	sent *concurrent.ShardedHashSet
}

// NewExporter creates an Exporter reading objects from st.
func NewExporter(st *store.Store, reg *codec.Registry) *Exporter {
	return &Exporter{st: st, reg: reg, sent: concurrent.NewShardedHashSet()}
}

// Run answers requests from peer (an Importer) against roots, the set this
// exporter currently offers, until peer sends FIN. newRoots, if non-nil, is
// drained and pushed to peer as CodeNewAccessibleRootEvent messages whenever
// one arrives (spec.md §6 code 3) — checked non-blocking between requests
// so Run stays single-goroutine per connection (spec.md §5's cooperative
// scheduling model), rather than risking a concurrent write to peer from a
// second goroutine.
func (ex *Exporter) Run(ctx context.Context, peer Peer, roots []Ref, newRoots <-chan Ref) error {
	for {
		if newRoots != nil {
			select {
			case r, ok := <-newRoots:
				if !ok {
					newRoots = nil
				} else if err := peer.Send(Message{Code: CodeNewAccessibleRootEvent, Roots: []Ref{r}}); err != nil {
					return err
				}
				continue
			default:
			}
		}

		msg, err := peer.Receive(ctx)
		if err != nil {
			return err
		}
		if err := ex.handle(peer, msg, roots); err != nil {
			return err
		}
		if msg.Code == CodeFin {
			return nil
		}
	}
}

func (ex *Exporter) handle(peer Peer, msg Message, roots []Ref) error {
	switch msg.Code {
	case CodeGetProtocolVersion:
		return peer.Send(Message{Code: CodeGetProtocolVersion, Version: params.ProtocolVersion})
	case CodeGetAccessibleRoots:
		return peer.Send(Message{Code: CodeGetAccessibleRoots, Roots: roots})
	case CodeGetObjectChildren:
		return ex.serveChildren(peer, CodeGetObjectChildren, msg.Hash, store.KindObject)
	case CodeGetIdObjectChildren:
		return ex.serveIDChildren(peer, msg.Hash)
	case CodeGetObject:
		return ex.serveContent(peer, CodeGetObject, msg.Hash, store.KindObject)
	case CodeGetIdObject:
		return ex.serveIDObject(peer, msg.Hash)
	case CodeGetBlob:
		return ex.serveBlobLike(peer, msg.Hash)
	case CodeGetCrdtMetaObject:
		return ex.serveContent(peer, CodeGetCrdtMetaObject, msg.Hash, store.KindObject)
	case CodeFin:
		return nil
	default:
		return onecoreerrors.New(onecoreerrors.KindProtocolError, "chum: unexpected message code from importer")
	}
}

func (ex *Exporter) serveContent(peer Peer, code Code, hexHash string, kind store.Kind) error {
	hash, err := common.HashFromHex(hexHash)
	if err != nil {
		return peer.Send(Message{Code: code, Hash: hexHash, Error: "malformed hash"})
	}
	data, err := ex.st.Get(kind, hash)
	if err != nil {
		return peer.Send(Message{Code: code, Hash: hexHash, Error: "not found"})
	}
	ex.sent.Add(hash)
	return peer.Send(Message{Code: code, Hash: hexHash, Data: data})
}

// serveBlobLike answers CodeGetBlob for either a BLOB or a CLOB: the wire
// table has one code for both (spec.md §6), so the exporter looks in
// whichever of the two stores actually holds the hash.
func (ex *Exporter) serveBlobLike(peer Peer, hexHash string) error {
	hash, err := common.HashFromHex(hexHash)
	if err != nil {
		return peer.Send(Message{Code: CodeGetBlob, Hash: hexHash, Error: "malformed hash"})
	}
	kind := store.KindBlob
	if !ex.st.Exists(store.KindBlob, hash) && ex.st.Exists(store.KindCLOB, hash) {
		kind = store.KindCLOB
	}
	data, err := ex.st.Get(kind, hash)
	if err != nil {
		return peer.Send(Message{Code: CodeGetBlob, Hash: hexHash, Error: "not found"})
	}
	ex.sent.Add(hash)
	return peer.Send(Message{Code: CodeGetBlob, Hash: hexHash, Data: data})
}

// serveIDObject resolves idHash to its current head and returns the head
// version's content. The response's Hash field carries the resolved head
// hash, not the requested idHash, so the importer can verify content
// against it and record the pointer via store.SetHead.
func (ex *Exporter) serveIDObject(peer Peer, hexIDHash string) error {
	idHash, err := common.HashFromHex(hexIDHash)
	if err != nil {
		return peer.Send(Message{Code: CodeGetIdObject, Hash: hexIDHash, Error: "malformed id hash"})
	}
	head, err := ex.st.Head(idHash)
	if err != nil {
		return peer.Send(Message{Code: CodeGetIdObject, Hash: hexIDHash, Error: "not found"})
	}
	data, err := ex.st.Get(store.KindObject, head)
	if err != nil {
		return peer.Send(Message{Code: CodeGetIdObject, Hash: hexIDHash, Error: "not found"})
	}
	ex.sent.Add(head)
	return peer.Send(Message{Code: CodeGetIdObject, Hash: head.String(), Data: data})
}

func (ex *Exporter) serveChildren(peer Peer, code Code, hexHash string, kind store.Kind) error {
	hash, err := common.HashFromHex(hexHash)
	if err != nil {
		return peer.Send(Message{Code: code, Hash: hexHash, Error: "malformed hash"})
	}
	data, err := ex.st.Get(kind, hash)
	if err != nil {
		return peer.Send(Message{Code: code, Hash: hexHash, Error: "not found"})
	}
	children, err := decodeChildren(ex.reg, data, ex.typeOf)
	if err != nil {
		// Not every stored byte string is a recipe-bound microdata object
		// (BLOBs/CLOBs are opaque); an object that fails to decode simply
		// has no references to report.
		return peer.Send(Message{Code: code, Hash: hexHash})
	}
	return peer.Send(Message{Code: code, Hash: hexHash, Children: children})
}

func (ex *Exporter) serveIDChildren(peer Peer, hexIDHash string) error {
	idHash, err := common.HashFromHex(hexIDHash)
	if err != nil {
		return peer.Send(Message{Code: CodeGetIdObjectChildren, Hash: hexIDHash, Error: "malformed id hash"})
	}
	head, err := ex.st.Head(idHash)
	if err != nil {
		return peer.Send(Message{Code: CodeGetIdObjectChildren, Hash: hexIDHash, Error: "not found"})
	}
	return ex.serveChildren(peer, CodeGetIdObjectChildren, head.String(), store.KindObject)
}

// typeOf resolves a referenced hash's own recipe type, for the Children
// responses. BLOB/CLOB references have no recipe type; object/ID
// references do only if this exporter already holds (and can decode) the
// referenced content — otherwise the type is reported empty rather than
// forcing a transfer just to answer a children query.
func (ex *Exporter) typeOf(hash common.Hash, kind common.ReferenceKind) string {
	target := hash
	switch kind {
	case common.RefBlob, common.RefCLOB:
		return ""
	case common.RefID:
		head, err := ex.st.Head(hash)
		if err != nil {
			return ""
		}
		target = head
	}
	data, err := ex.st.Get(store.KindObject, target)
	if err != nil {
		return ""
	}
	rec, _, err := ex.reg.Decode(data)
	if err != nil {
		return ""
	}
	return rec.Type
}

// AccessibleRoots filters candidates down to the ones person (optionally
// via group membership) currently has access to, per the grants mgr
// holds, and renders them as the Ref list CodeGetAccessibleRoots answers
// with (spec.md §4.7's access-object model feeding §4.8's root discovery).
// An IdAccess candidate is an ID-hash and becomes a RefID root; an Access
// candidate is an object hash and becomes a RefObject root. Each Ref's Type
// carries the candidate's grant type name.
func AccessibleRoots(mgr *access.Manager, person access.PersonID, membership func(group, person access.GroupID) bool, candidates []RootCandidate) ([]Ref, error) {
	var out []Ref
	for _, c := range candidates {
		grant, ok, err := mgr.Current(c.TypeName, c.Hash)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if access.Permits(grant, person, membership) {
			kind := common.RefID
			if c.TypeName == access.TypeAccess {
				kind = common.RefObject
			}
			out = append(out, Ref{Hash: c.Hash.String(), Kind: kind, Type: c.TypeName})
		}
	}
	return out, nil
}

// RootCandidate is one object this instance could offer a peer, pending an
// access check. TypeName selects whether its governing grant is an Access
// (RefObject) or IdAccess (RefID) object, per access.Field's split.
type RootCandidate struct {
	Hash     common.Hash
	TypeName string
}
