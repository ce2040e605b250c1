// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package transport

import (
	onecoreerrors "github.com/refinio/onecore/pkg/errors"
)

const (
	sentinelStartString = "fragmentation_start_string"
	sentinelStartBinary = "fragmentation_start_binary"
	sentinelEnd          = "fragmentation_end"

	// escapeMarker prefixes any application text frame that would
	// otherwise collide with a sentinel, so the receiver can tell a real
	// control sentinel from escaped application data carrying the same
	// bytes (spec.md §4.5's "reversible escape convention").
	escapeMarker = "\x00"
)

// FragmentationPlugin chunks outgoing frames larger than ChunkSize into a
// start sentinel, a run of binary chunks, and an end sentinel, and
// reassembles them on the incoming side. Text frames whose UTF-8 length
// is at least ChunkSize/4 are sent as binary fragments to bound worst-case
// UTF-8 expansion during chunking.
type FragmentationPlugin struct {
	PassThrough

	ChunkSize int

	assembling   bool
	asText       bool
	buf          []byte
}

// NewFragmentationPlugin creates a plugin chunking at chunkSize bytes.
func NewFragmentationPlugin(chunkSize int) *FragmentationPlugin {
	return &FragmentationPlugin{ChunkSize: chunkSize}
}

func (f *FragmentationPlugin) Name() string { return "fragmentation" }

func (f *FragmentationPlugin) TransformOutgoing(evt Event) (*Event, []Event, error) {
	switch evt.Kind {
	case EventMessageText:
		if isSentinel(evt.Text) {
			return &Event{Kind: EventMessageText, Text: escapeMarker + evt.Text}, nil, nil
		}
		if len(evt.Text) >= f.ChunkSize/4 {
			return f.fragment([]byte(evt.Text), true)
		}
		return &evt, nil, nil

	case EventMessageBinary:
		if len(evt.Bytes) > f.ChunkSize {
			return f.fragment(evt.Bytes, false)
		}
		return &evt, nil, nil

	default:
		return &evt, nil, nil
	}
}

func (f *FragmentationPlugin) fragment(data []byte, asText bool) (*Event, []Event, error) {
	var extra []Event
	startSentinel := sentinelStartBinary
	if asText {
		startSentinel = sentinelStartString
	}
	extra = append(extra, TextEvent(startSentinel))
	for i := 0; i < len(data); i += f.ChunkSize {
		end := i + f.ChunkSize
		if end > len(data) {
			end = len(data)
		}
		extra = append(extra, BinaryEvent(data[i:end]))
	}
	extra = append(extra, TextEvent(sentinelEnd))
	return nil, extra, nil
}

func (f *FragmentationPlugin) TransformIncoming(evt Event) (*Event, []Event, error) {
	switch evt.Kind {
	case EventMessageText:
		if unescaped, ok := stripEscape(evt.Text); ok {
			return &Event{Kind: EventMessageText, Text: unescaped}, nil, nil
		}
		switch evt.Text {
		case sentinelStartString, sentinelStartBinary:
			if f.assembling {
				return nil, nil, onecoreerrors.New(onecoreerrors.KindProtocolError, "fragmentation: start sentinel received twice before end")
			}
			f.assembling = true
			f.asText = evt.Text == sentinelStartString
			f.buf = nil
			return nil, nil, nil

		case sentinelEnd:
			if !f.assembling {
				return nil, nil, onecoreerrors.New(onecoreerrors.KindProtocolError, "fragmentation: end sentinel without a matching start")
			}
			f.assembling = false
			data := f.buf
			f.buf = nil
			if f.asText {
				return &Event{Kind: EventMessageText, Text: string(data)}, nil, nil
			}
			return &Event{Kind: EventMessageBinary, Bytes: data}, nil, nil

		default:
			if f.assembling {
				return nil, nil, onecoreerrors.New(onecoreerrors.KindProtocolError, "fragmentation: non-sentinel text frame while assembling a fragment")
			}
			return &evt, nil, nil
		}

	case EventMessageBinary:
		if f.assembling {
			f.buf = append(f.buf, evt.Bytes...)
			return nil, nil, nil
		}
		return &evt, nil, nil

	default:
		return &evt, nil, nil
	}
}

func isSentinel(text string) bool {
	return text == sentinelStartString || text == sentinelStartBinary || text == sentinelEnd
}

func stripEscape(text string) (string, bool) {
	if len(text) > 0 && text[0] == escapeMarker[0] {
		return text[1:], true
	}
	return "", false
}
