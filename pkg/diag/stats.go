package diag

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"xlatorbot/pkg/bus"
)

// Stats is the process-wide diagnostic context. It is created once at startup
// and only reset by a restart.
type Stats struct {
	startedAt time.Time
	now       func() time.Time

	translations atomic.Int64
	failures     atomic.Int64
	reconnects   atomic.Int64

	mu              sync.RWMutex
	state           bus.ConnectionState
	lastLogon       time.Time
	lastStateChange time.Time
}

// Snapshot is a point-in-time copy of Stats plus runtime memory figures.
type Snapshot struct {
	StartedAt       time.Time           `json:"started_at"`
	UptimeSeconds   int64               `json:"uptime_seconds"`
	State           bus.ConnectionState `json:"state"`
	LastLogon       time.Time           `json:"last_logon"`
	LastStateChange time.Time           `json:"last_state_change"`
	Translations    int64               `json:"translations"`
	Failures        int64               `json:"failures"`
	Reconnects      int64               `json:"reconnects"`
	HeapAllocBytes  uint64              `json:"heap_alloc_bytes"`
	SysBytes        uint64              `json:"sys_bytes"`
	Goroutines      int                 `json:"goroutines"`
}

func NewStats() *Stats {
	return newStats(time.Now)
}

func newStats(now func() time.Time) *Stats {
	return &Stats{
		startedAt: now(),
		now:       now,
		state:     bus.StateDisconnected,
	}
}

func (s *Stats) RecordTranslation() { s.translations.Add(1) }

func (s *Stats) RecordFailure() { s.failures.Add(1) }

func (s *Stats) RecordReconnect() { s.reconnects.Add(1) }

// RecordState stores a connection state change. Entering Connected also
// counts as a logon.
func (s *Stats) RecordState(state bus.ConnectionState, at time.Time) {
	if at.IsZero() {
		at = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.lastStateChange = at
	if state == bus.StateConnected {
		s.lastLogon = at
	}
}

func (s *Stats) State() bus.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Stats) Translations() int64 {
	return s.translations.Load()
}

func (s *Stats) Snapshot() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		StartedAt:       s.startedAt,
		UptimeSeconds:   int64(s.now().Sub(s.startedAt) / time.Second),
		State:           s.state,
		LastLogon:       s.lastLogon,
		LastStateChange: s.lastStateChange,
		Translations:    s.translations.Load(),
		Failures:        s.failures.Load(),
		Reconnects:      s.reconnects.Load(),
		HeapAllocBytes:  mem.HeapAlloc,
		SysBytes:        mem.Sys,
		Goroutines:      runtime.NumGoroutine(),
	}
}

// Uptime is the snapshot uptime as a duration.
func (s Snapshot) Uptime() time.Duration {
	return time.Duration(s.UptimeSeconds) * time.Second
}
