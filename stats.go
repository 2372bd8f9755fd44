package aisbridge

import (
	"sync/atomic"
	"time"
)

// Stats holds the monotonic counters the service controller maintains for
// the lifetime of the process. All fields are accessed via atomic
// operations so the controller's hot path never blocks on a mutex for a
// simple increment.
type Stats struct {
	received  uint64
	converted uint64
	broadcast uint64
	errors    uint64

	byKind [5]uint64 // indexed by Kind

	startedAt time.Time
}

// NewStats returns a Stats value with its start time set to now.
func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

func (s *Stats) IncReceived()            { atomic.AddUint64(&s.received, 1) }
func (s *Stats) IncConverted(k Kind)     { atomic.AddUint64(&s.converted, 1); atomic.AddUint64(&s.byKind[k], 1) }
func (s *Stats) IncBroadcast(n uint64)   { atomic.AddUint64(&s.broadcast, n) }
func (s *Stats) IncErrors()              { atomic.AddUint64(&s.errors, 1) }

// Snapshot is an immutable point-in-time copy of the counters, suitable for
// logging or exposing over a status query without holding any lock open.
type Snapshot struct {
	Received, Converted, Broadcast, Errors uint64
	ByKind                                 map[string]uint64
	Uptime                                 time.Duration
}

// Snapshot captures the current counter values.
func (s *Stats) Snapshot() Snapshot {
	byKind := make(map[string]uint64, len(s.byKind))
	for k := range s.byKind {
		if v := atomic.LoadUint64(&s.byKind[k]); v > 0 {
			byKind[Kind(k).String()] = v
		}
	}
	return Snapshot{
		Received:  atomic.LoadUint64(&s.received),
		Converted: atomic.LoadUint64(&s.converted),
		Broadcast: atomic.LoadUint64(&s.broadcast),
		Errors:    atomic.LoadUint64(&s.errors),
		ByKind:    byKind,
		Uptime:    time.Since(s.startedAt),
	}
}
