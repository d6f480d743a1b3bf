// Package stats tracks process-wide relay telemetry: connection counts,
// message volume, and uptime. Counters are lock-free and safe for concurrent
// use from the gateway and relay engine.
package stats

import (
	"sync/atomic"
	"time"
)

// Stats holds the process-wide counters behind the /api/status endpoint.
type Stats struct {
	start time.Time

	active   atomic.Int64
	total    atomic.Int64
	peak     atomic.Int64
	sent     atomic.Int64
	received atomic.Int64
}

// New creates a Stats with the start time set to now.
func New() *Stats {
	return &Stats{start: time.Now()}
}

// ConnectionOpened records a new connection and updates the peak watermark.
func (s *Stats) ConnectionOpened() {
	s.total.Add(1)
	active := s.active.Add(1)
	for {
		peak := s.peak.Load()
		if active <= peak || s.peak.CompareAndSwap(peak, active) {
			return
		}
	}
}

// ConnectionClosed records a closed connection.
func (s *Stats) ConnectionClosed() {
	s.active.Add(-1)
}

// MessageReceived counts one inbound client message.
func (s *Stats) MessageReceived() {
	s.received.Add(1)
}

// MessagesSent counts n outbound messages (a broadcast counts once per
// recipient it was actually queued for).
func (s *Stats) MessagesSent(n int) {
	s.sent.Add(int64(n))
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	ActiveConnections int64
	TotalConnections  int64
	PeakConnections   int64
	MessagesSent      int64
	MessagesReceived  int64
	Uptime            time.Duration
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		ActiveConnections: s.active.Load(),
		TotalConnections:  s.total.Load(),
		PeakConnections:   s.peak.Load(),
		MessagesSent:      s.sent.Load(),
		MessagesReceived:  s.received.Load(),
		Uptime:            time.Since(s.start),
	}
}
