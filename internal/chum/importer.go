// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package chum

import (
	"context"

	"github.com/refinio/onecore/common"
	"github.com/refinio/onecore/internal/access"
	"github.com/refinio/onecore/internal/codec"
	"github.com/refinio/onecore/internal/store"
	"github.com/refinio/onecore/log"
	"github.com/refinio/onecore/params"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// Importer pulls objects from a peer (an Exporter) that it does not already
// hold, starting from the peer's accessible roots and following references
// transitively (spec.md §4.7). A hash already present locally, or already
// enqueued this session, is never requested twice.
type Importer struct {
	st  *store.Store
	reg *codec.Registry
	log log.Logger

	pending []Ref
	known   map[string]bool
}

// NewImporter creates an Importer writing objects into st.
func NewImporter(st *store.Store, reg *codec.Registry) *Importer {
	return &Importer{
		st:    st,
		reg:   reg,
		log:   log.New("component", "chum.importer"),
		known: make(map[string]bool),
	}
}

// Run negotiates the protocol version, fetches peer's accessible roots,
// and transitively imports everything reachable from them, terminating the
// session with FIN once the pending queue drains.
func (im *Importer) Run(ctx context.Context, peer Peer) error {
	if err := im.checkProtocolVersion(ctx, peer); err != nil {
		return err
	}

	reply, err := im.receive(ctx, peer, Message{Code: CodeGetAccessibleRoots})
	if err != nil {
		return err
	}
	im.enqueue(reply.Roots)

	for len(im.pending) > 0 {
		ref := im.pending[0]
		im.pending = im.pending[1:]
		if err := im.importOne(ctx, peer, ref); err != nil {
			return err
		}
	}

	return peer.Send(Message{Code: CodeFin})
}

// checkProtocolVersion is the mandatory first exchange (spec.md §4.7 step
// 1, §8): any mismatch against params.ProtocolVersion is fatal, before a
// single root or object is ever requested.
func (im *Importer) checkProtocolVersion(ctx context.Context, peer Peer) error {
	reply, err := im.receive(ctx, peer, Message{Code: CodeGetProtocolVersion})
	if err != nil {
		return err
	}
	if reply.Version != params.ProtocolVersion {
		return onecoreerrors.New(onecoreerrors.KindProtocolVersionMismatch, "chum: peer protocol version mismatch")
	}
	return nil
}

// receive sends req and waits for peer's reply, transparently absorbing
// any CodeNewAccessibleRootEvent pushes that arrive first: the exporter
// may interleave those at any point in its single send loop (spec.md §6
// code 3), and the importer enqueues them without treating them as the
// answer to req.
func (im *Importer) receive(ctx context.Context, peer Peer, req Message) (Message, error) {
	if err := peer.Send(req); err != nil {
		return Message{}, err
	}
	for {
		reply, err := peer.Receive(ctx)
		if err != nil {
			return Message{}, err
		}
		if reply.Code == CodeNewAccessibleRootEvent {
			im.enqueue(reply.Roots)
			continue
		}
		return reply, nil
	}
}

func (im *Importer) enqueue(refs []Ref) {
	for _, r := range refs {
		if im.known[r.Hash] {
			continue
		}
		im.known[r.Hash] = true
		im.pending = append(im.pending, r)
	}
}

// importOne fetches ref's content, dispatching on its reference variant to
// the store.Kind and wire code that variant requires (spec.md §6 codes
// 6-9), then enqueues whatever children the exporter reports for it.
func (im *Importer) importOne(ctx context.Context, peer Peer, ref Ref) error {
	switch ref.Kind {
	case common.RefBlob:
		return im.importBlobLike(ctx, peer, ref, store.KindBlob)
	case common.RefCLOB:
		return im.importBlobLike(ctx, peer, ref, store.KindCLOB)
	case common.RefID:
		return im.importIDObject(ctx, peer, ref)
	default:
		return im.importObject(ctx, peer, ref)
	}
}

func (im *Importer) importBlobLike(ctx context.Context, peer Peer, ref Ref, kind store.Kind) error {
	hash, err := common.HashFromHex(ref.Hash)
	if err != nil {
		im.log.Warn("chum: malformed blob hash from peer", "hash", ref.Hash)
		return nil
	}
	if im.st.Exists(kind, hash) {
		return nil
	}

	reply, err := im.receive(ctx, peer, Message{Code: CodeGetBlob, Hash: ref.Hash})
	if err != nil {
		return err
	}
	if reply.Error != "" {
		im.log.Warn("chum: peer could not serve blob", "hash", ref.Hash, "error", reply.Error)
		return nil
	}
	got, _, err := im.st.Put(kind, reply.Data)
	if err != nil {
		return err
	}
	if got != hash {
		return onecoreerrors.ErrHashMismatch
	}
	return nil
}

// objectCode picks CodeGetObject vs CodeGetCrdtMetaObject for a plain
// (RefObject) reference, using the already-known recipe type name so an
// Access/IdAccess grant is recognizably a CRDT-meta transfer on the wire
// (spec.md §6 code 9) without decoding anything first.
func objectCode(typeName string) Code {
	if typeName == access.TypeAccess || typeName == access.TypeIdAccess {
		return CodeGetCrdtMetaObject
	}
	return CodeGetObject
}

func (im *Importer) importObject(ctx context.Context, peer Peer, ref Ref) error {
	hash, err := common.HashFromHex(ref.Hash)
	if err != nil {
		im.log.Warn("chum: malformed object hash from peer", "hash", ref.Hash)
		return nil
	}
	if im.st.Exists(store.KindObject, hash) {
		return nil
	}

	code := objectCode(ref.Type)
	reply, err := im.receive(ctx, peer, Message{Code: code, Hash: ref.Hash})
	if err != nil {
		return err
	}
	if reply.Error != "" {
		im.log.Warn("chum: peer could not serve object", "hash", ref.Hash, "error", reply.Error)
		return nil
	}
	if err := im.storeAndFollow(ctx, peer, reply.Data, hash, CodeGetObjectChildren, hash.String()); err != nil {
		return err
	}
	return nil
}

// importIDObject resolves ref's ID-hash to its peer's current head,
// storing the content under the resolved head hash and recording the
// pointer via store.SetHead, then asks the exporter for the head's
// children (spec.md §6 code 5) rather than re-decoding locally.
func (im *Importer) importIDObject(ctx context.Context, peer Peer, ref Ref) error {
	idHash, err := common.HashFromHex(ref.Hash)
	if err != nil {
		im.log.Warn("chum: malformed id hash from peer", "hash", ref.Hash)
		return nil
	}

	reply, err := im.receive(ctx, peer, Message{Code: CodeGetIdObject, Hash: ref.Hash})
	if err != nil {
		return err
	}
	if reply.Error != "" {
		im.log.Warn("chum: peer could not serve id-object", "hash", ref.Hash, "error", reply.Error)
		return nil
	}
	head, err := common.HashFromHex(reply.Hash)
	if err != nil {
		return onecoreerrors.New(onecoreerrors.KindCodecError, "chum: peer returned malformed head hash")
	}

	if !im.st.Exists(store.KindObject, head) {
		if err := im.storeAndFollow(ctx, peer, reply.Data, head, CodeGetIdObjectChildren, ref.Hash); err != nil {
			return err
		}
	} else {
		children, err := im.fetchChildren(ctx, peer, CodeGetIdObjectChildren, ref.Hash)
		if err != nil {
			return err
		}
		im.enqueue(children)
	}
	return im.st.SetHead(idHash, head)
}

// storeAndFollow verifies data hashes to hash, persists it (with
// reverse-map entries when decodable), and asks the exporter for its
// children via childrenCode/childrenHash rather than decoding locally —
// the exporter's Children response also resolves each child's recipe
// type, which a purely local decode cannot do before that child is itself
// fetched. childrenHash differs from hash for an ID-object: the children
// query addresses the ID-hash (the exporter resolves the head itself),
// not the head's own content hash.
func (im *Importer) storeAndFollow(ctx context.Context, peer Peer, data []byte, hash common.Hash, childrenCode Code, childrenHash string) error {
	rec, recipe, err := im.reg.Decode(data)
	var got common.Hash
	if err != nil {
		// Not every object decodes under a known recipe from this side yet;
		// store it verbatim and let a later pass (or the next sync) resolve
		// it once the recipe is known.
		got, _, err = im.st.Put(store.KindObject, data)
		if err != nil {
			return err
		}
	} else {
		refs := make([]store.Reference, 0, len(rec.Values))
		for _, ri := range decodeRecordReferences(recipe, rec) {
			refs = append(refs, store.Reference{Target: ri.Hash, Kind: ri.Kind})
		}
		got, _, err = im.st.PutObjectWithReferences(rec.Type, data, refs)
		if err != nil {
			return err
		}
	}
	if got != hash {
		return onecoreerrors.ErrHashMismatch
	}

	children, err := im.fetchChildren(ctx, peer, childrenCode, childrenHash)
	if err != nil {
		return err
	}
	im.enqueue(children)
	return nil
}

func (im *Importer) fetchChildren(ctx context.Context, peer Peer, code Code, hexHash string) ([]Ref, error) {
	reply, err := im.receive(ctx, peer, Message{Code: code, Hash: hexHash})
	if err != nil {
		return nil, err
	}
	if reply.Error != "" {
		im.log.Warn("chum: peer could not list children", "hash", hexHash, "error", reply.Error)
		return nil, nil
	}
	return reply.Children, nil
}
