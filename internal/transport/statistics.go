// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package transport

import (
	"sync"
	"time"
)

// StatisticsPlugin counts bytes transferred in each direction and records
// the connection's open/close timestamps and final close event (spec.md
// §4.5's "Statistics: counts bytes, records open/close timestamps").
type StatisticsPlugin struct {
	PassThrough

	mu          sync.Mutex
	bytesIn     uint64
	bytesOut    uint64
	openedAt    time.Time
	closedAt    time.Time
	closeReason string
}

// NewStatisticsPlugin creates a StatisticsPlugin with its open timestamp
// set to now.
func NewStatisticsPlugin(now time.Time) *StatisticsPlugin {
	return &StatisticsPlugin{openedAt: now}
}

func (s *StatisticsPlugin) Name() string { return "statistics" }

func (s *StatisticsPlugin) TransformIncoming(evt Event) (*Event, []Event, error) {
	s.mu.Lock()
	switch evt.Kind {
	case EventMessageText:
		s.bytesIn += uint64(len(evt.Text))
	case EventMessageBinary:
		s.bytesIn += uint64(len(evt.Bytes))
	case EventClosed:
		s.closedAt = time.Now()
		s.closeReason = evt.Reason
	}
	s.mu.Unlock()
	return &evt, nil, nil
}

func (s *StatisticsPlugin) TransformOutgoing(evt Event) (*Event, []Event, error) {
	s.mu.Lock()
	switch evt.Kind {
	case EventMessageText:
		s.bytesOut += uint64(len(evt.Text))
	case EventMessageBinary:
		s.bytesOut += uint64(len(evt.Bytes))
	}
	s.mu.Unlock()
	return &evt, nil, nil
}

// Snapshot is a point-in-time read of the plugin's counters.
type Snapshot struct {
	BytesIn     uint64
	BytesOut    uint64
	OpenedAt    time.Time
	ClosedAt    time.Time
	CloseReason string
}

// Snapshot returns the current counters.
func (s *StatisticsPlugin) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		BytesIn:     s.bytesIn,
		BytesOut:    s.bytesOut,
		OpenedAt:    s.openedAt,
		ClosedAt:    s.closedAt,
		CloseReason: s.closeReason,
	}
}
