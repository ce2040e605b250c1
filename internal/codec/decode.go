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
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/refinio/onecore/common"
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

var (
	reDiv       = regexp.MustCompile(`^<div itemscope itemtype="//refin\.io/([^"]+)">`)
	reDivClose  = regexp.MustCompile(`^</div>$`)
	reSpanOpen  = regexp.MustCompile(`^<span itemprop="([^"]+)">`)
	reSpanClose = regexp.MustCompile(`^</span>`)
	reULOpen    = regexp.MustCompile(`^<ul itemprop="([^"]+)">`)
	reULClose   = regexp.MustCompile(`^</ul>`)
	reLIOpen    = regexp.MustCompile(`^<li(?: data-key="([^"]*)")?>`)
	reLIClose   = regexp.MustCompile(`^</li>`)
	reRef       = regexp.MustCompile(`^<a data-type="([^"]+)">([0-9a-f]{64})</a>$`)
)

// Decode parses canonical microdata bytes back into a Record, verifying
// that the bytes are exactly the canonical encoding their recipe would have
// produced. Any deviation (wrong field order, unknown field, malformed
// reference, non-canonical number) is a CodecError.
func (reg *Registry) Decode(data []byte) (*Record, *Recipe, error) {
	m := reDiv.FindSubmatch(data)
	if m == nil {
		return nil, nil, onecoreerrors.New(onecoreerrors.KindCodecError, "not a canonical microdata document")
	}
	typeName := string(m[1])
	rec, ok := reg.Lookup(typeName)
	if !ok {
		return nil, nil, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("no recipe registered for type %q", typeName))
	}

	cursor := data[len(m[0]):]
	if !strings.HasSuffix(string(cursor), "</div>") {
		return nil, nil, onecoreerrors.New(onecoreerrors.KindCodecError, "missing closing </div>")
	}
	cursor = cursor[:len(cursor)-len("</div>")]

	record := NewRecord(typeName)
	fi := 0

	for len(cursor) > 0 {
		name, consumed, matched := peekItemprop(cursor)
		if !matched {
			return nil, nil, onecoreerrors.New(onecoreerrors.KindCodecError, "malformed element at "+previewOf(cursor))
		}

		found := -1
		for j := fi; j < len(rec.Fields); j++ {
			if rec.Fields[j].Name == name {
				found = j
				break
			}
		}
		if found == -1 {
			return nil, nil, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q out of canonical order or unknown", name))
		}
		fi = found + 1

		f := rec.Fields[found]
		rest, v, err := decodeField(f, cursor)
		if err != nil {
			return nil, nil, err
		}
		record.Values[f.Name] = v
		_ = consumed
		cursor = rest
	}

	return record, rec, nil
}

// peekItemprop looks at the next element without consuming, returning its
// itemprop name so the caller can match it against the recipe.
func peekItemprop(cursor []byte) (name string, consumedLen int, ok bool) {
	if m := reSpanOpen.FindSubmatch(cursor); m != nil {
		return string(m[1]), len(m[0]), true
	}
	if m := reULOpen.FindSubmatch(cursor); m != nil {
		return string(m[1]), len(m[0]), true
	}
	return "", 0, false
}

func decodeField(f Field, cursor []byte) ([]byte, Value, error) {
	switch f.Collection {
	case NotCollection:
		m := reSpanOpen.FindSubmatch(cursor)
		if m == nil {
			return nil, Value{}, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: expected <span>", f.Name))
		}
		rest := cursor[len(m[0]):]
		content, rest2, err := readUntilClose(rest, reSpanClose)
		if err != nil {
			return nil, Value{}, err
		}
		scalar, err := decodeScalar(f, content)
		if err != nil {
			return nil, Value{}, err
		}
		return rest2, Value{Scalar: scalar}, nil

	case Bag, Set:
		var items []interface{}
		for {
			m := reSpanOpen.FindSubmatch(cursor)
			if m == nil || string(m[1]) != f.Name {
				break
			}
			rest := cursor[len(m[0]):]
			content, rest2, err := readUntilClose(rest, reSpanClose)
			if err != nil {
				return nil, Value{}, err
			}
			scalar, err := decodeScalar(f, content)
			if err != nil {
				return nil, Value{}, err
			}
			items = append(items, scalar)
			cursor = rest2
		}
		return cursor, Value{Items: items}, nil

	case Array:
		m := reULOpen.FindSubmatch(cursor)
		if m == nil {
			return nil, Value{}, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: expected <ul>", f.Name))
		}
		cursor = cursor[len(m[0]):]
		var items []interface{}
		for {
			lm := reLIOpen.FindSubmatch(cursor)
			if lm == nil {
				break
			}
			cursor = cursor[len(lm[0]):]
			content, rest, err := readUntilClose(cursor, reLIClose)
			if err != nil {
				return nil, Value{}, err
			}
			scalar, err := decodeScalar(f, content)
			if err != nil {
				return nil, Value{}, err
			}
			items = append(items, scalar)
			cursor = rest
		}
		cm := reULClose.FindIndex(cursor)
		if cm == nil {
			return nil, Value{}, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: missing </ul>", f.Name))
		}
		cursor = cursor[cm[1]:]
		return cursor, Value{Items: items}, nil

	case Map:
		m := reULOpen.FindSubmatch(cursor)
		if m == nil {
			return nil, Value{}, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: expected <ul>", f.Name))
		}
		cursor = cursor[len(m[0]):]
		items := make(map[string]interface{})
		lastKey := ""
		first := true
		for {
			lm := reLIOpen.FindSubmatch(cursor)
			if lm == nil {
				break
			}
			key := string(lm[1])
			if !first && key <= lastKey {
				return nil, Value{}, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: map keys out of canonical order", f.Name))
			}
			first = false
			lastKey = key
			cursor = cursor[len(lm[0]):]
			content, rest, err := readUntilClose(cursor, reLIClose)
			if err != nil {
				return nil, Value{}, err
			}
			scalar, err := decodeScalar(f, content)
			if err != nil {
				return nil, Value{}, err
			}
			items[key] = scalar
			cursor = rest
		}
		cm := reULClose.FindIndex(cursor)
		if cm == nil {
			return nil, Value{}, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: missing </ul>", f.Name))
		}
		cursor = cursor[cm[1]:]
		return cursor, Value{MapItems: items}, nil

	default:
		return nil, Value{}, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("unknown collection kind for field %q", f.Name))
	}
}

// readUntilClose splits cursor at the first match of closeRe, returning the
// content before it and the remaining bytes after it.
func readUntilClose(cursor []byte, closeRe *regexp.Regexp) (content, rest []byte, err error) {
	loc := closeRe.FindIndex(cursor)
	if loc == nil {
		return nil, nil, onecoreerrors.New(onecoreerrors.KindCodecError, "missing closing tag")
	}
	return cursor[:loc[0]], cursor[loc[1]:], nil
}

func decodeScalar(f Field, content []byte) (interface{}, error) {
	switch f.Kind {
	case KindString:
		return unescapeText(string(content)), nil

	case KindNumber:
		s := string(content)
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: %q is not a canonical integer", f.Name, s))
		}
		if strconv.FormatInt(n, 10) != s {
			return nil, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: %q is not the canonical form of %d", f.Name, s, n))
		}
		return n, nil

	case KindBool:
		switch string(content) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return nil, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: %q is not a canonical bool", f.Name, content))
		}

	case KindReference:
		m := reRef.FindSubmatch(content)
		if m == nil {
			return nil, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: malformed reference %q", f.Name, content))
		}
		if string(m[1]) != f.ReferenceKind.String() {
			return nil, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: reference kind %q does not match recipe kind %q", f.Name, m[1], f.ReferenceKind.String()))
		}
		h, err := common.HashFromHex(string(m[2]))
		if err != nil {
			return nil, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("field %q: %v", f.Name, err))
		}
		return h, nil

	default:
		return nil, onecoreerrors.New(onecoreerrors.KindCodecError, fmt.Sprintf("unknown field kind for %q", f.Name))
	}
}

func unescapeText(s string) string {
	replacer := strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")
	return replacer.Replace(s)
}

func previewOf(b []byte) string {
	if len(b) > 32 {
		b = b[:32]
	}
	return string(b)
}
