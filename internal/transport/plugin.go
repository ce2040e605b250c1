// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package transport

// Plugin is one stage of the connection pipeline. TransformIncoming runs
// outermost-first -> innermost on events arriving from the socket;
// TransformOutgoing runs in reverse order on events the application sends.
// Returning (nil, nil, extra) swallows the event while still emitting any
// extra events the plugin wants to inject (e.g. a keepalive pulse).
type Plugin interface {
	Name() string
	TransformIncoming(evt Event) (out *Event, extra []Event, err error)
	TransformOutgoing(evt Event) (out *Event, extra []Event, err error)
}

// PassThrough embeds into a Plugin implementation to default both
// transforms to identity, so a plugin only needs to override the
// direction it actually cares about.
type PassThrough struct{}

func (PassThrough) TransformIncoming(evt Event) (*Event, []Event, error) { return &evt, nil, nil }
func (PassThrough) TransformOutgoing(evt Event) (*Event, []Event, error) { return &evt, nil, nil }
