package diag

import (
	"log/slog"
	"time"
)

// Reporter logs a Snapshot. It is run on a timer by the run command.
type Reporter struct {
	stats *Stats
	log   *slog.Logger
}

func NewReporter(stats *Stats, log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}

	return &Reporter{stats: stats, log: log.With("component", "diag")}
}

// Report writes one diagnostic line and returns the snapshot it logged.
func (r *Reporter) Report() Snapshot {
	snap := r.stats.Snapshot()
	r.log.Info("Diagnostics",
		"uptime", snap.Uptime().String(),
		"state", snap.State,
		"last_logon", FormatTime(snap.LastLogon),
		"last_state_change", FormatTime(snap.LastStateChange),
		"translations", snap.Translations,
		"failures", snap.Failures,
		"reconnects", snap.Reconnects,
		"heap_alloc_bytes", snap.HeapAllocBytes,
		"sys_bytes", snap.SysBytes,
		"goroutines", snap.Goroutines,
	)
	return snap
}

// FormatTime renders t in RFC 3339 UTC, or "never" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}
