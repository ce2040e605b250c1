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

package codec

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/refinio/onecore/common"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

// Encode renders r according to rec into its canonical microdata form and
// returns both the bytes and their SHA-256 content hash.
func (reg *Registry) Encode(rec *Recipe, r *Record) ([]byte, common.Hash, error) {
	if rec.TypeName != r.Type {
		return nil, common.ZeroHash, onecoreerrors.New(onecoreerrors.KindCodecError,
			fmt.Sprintf("record type %q does not match recipe type %q", r.Type, rec.TypeName))
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div itemscope itemtype="//refin.io/%s">`, rec.TypeName)

	for _, f := range rec.Fields {
		v, present := r.Values[f.Name]
		if !present {
			continue
		}
		if err := encodeField(&b, f, v); err != nil {
			return nil, common.ZeroHash, err
		}
	}

	b.WriteString("</div>")

	data := []byte(b.String())
	return data, Hash(data), nil
}

// Hash computes the content hash of already-encoded canonical bytes.
func Hash(data []byte) common.Hash {
	return sha256.Sum256(data)
}

func encodeField(b *strings.Builder, f Field, v Value) error {
	switch f.Collection {
	case NotCollection:
		scalar, err := encodeScalar(f, v.Scalar)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, `<span itemprop="%s">%s</span>`, f.Name, scalar)
		return nil

	case Bag, Set:
		items := v.Items
		if f.Collection == Set {
			items = dedupe(items)
		}
		for _, item := range items {
			scalar, err := encodeScalar(f, item)
			if err != nil {
				return err
			}
			fmt.Fprintf(b, `<span itemprop="%s">%s</span>`, f.Name, scalar)
		}
		return nil

	case Array:
		b.WriteString(fmt.Sprintf(`<ul itemprop="%s">`, f.Name))
		for _, item := range v.Items {
			scalar, err := encodeScalar(f, item)
			if err != nil {
				return err
			}
			fmt.Fprintf(b, `<li>%s</li>`, scalar)
		}
		b.WriteString(`</ul>`)
		return nil

	case Map:
		keys := make([]string, 0, len(v.MapItems))
		for k := range v.MapItems {
			keys = append(keys, k)
		}
		keys = sortedKeys(keys)
		b.WriteString(fmt.Sprintf(`<ul itemprop="%s">`, f.Name))
		for _, k := range keys {
			scalar, err := encodeScalar(f, v.MapItems[k])
			if err != nil {
				return err
			}
			fmt.Fprintf(b, `<li data-key="%s">%s</li>`, escapeAttr(k), scalar)
		}
		b.WriteString(`</ul>`)
		return nil

	default:
		return onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("unknown collection kind for field %q", f.Name))
	}
}

func encodeScalar(f Field, v interface{}) (string, error) {
	switch f.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return "", onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: expected string, got %T", f.Name, v))
		}
		return escapeText(s), nil

	case KindNumber:
		switch n := v.(type) {
		case int64:
			return strconv.FormatInt(n, 10), nil
		case int:
			return strconv.Itoa(n), nil
		case uint64:
			return strconv.FormatUint(n, 10), nil
		default:
			return "", onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: expected integer, got %T", f.Name, v))
		}

	case KindBool:
		bv, ok := v.(bool)
		if !ok {
			return "", onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: expected bool, got %T", f.Name, v))
		}
		if bv {
			return "true", nil
		}
		return "false", nil

	case KindReference:
		h, ok := v.(common.Hash)
		if !ok {
			return "", onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: expected common.Hash, got %T", f.Name, v))
		}
		return fmt.Sprintf(`<a data-type="%s">%s</a>`, f.ReferenceKind.String(), h.String()), nil

	default:
		return "", onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("unknown field kind for %q", f.Name))
	}
}

func dedupe(items []interface{}) []interface{} {
	seen := make(map[interface{}]struct{}, len(items))
	out := make([]interface{}, 0, len(items))
	for _, it := range items {
		key := it
		if h, ok := it.(common.Hash); ok {
			key = h.String()
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

// escapeText escapes the three bytes that would otherwise be ambiguous
// inside a text node: '&', '<', '>'.
func escapeText(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return replacer.Replace(s)
}

func escapeAttr(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", `"`, "&quot;")
	return replacer.Replace(s)
}
