package cmd

import (
	"strings"
	"testing"
	"time"

	"xlatorbot/pkg/bus"
	"xlatorbot/pkg/diag"
	"xlatorbot/pkg/hint"
	"xlatorbot/pkg/status"
)

func TestLangRowsFiltersByCode(t *testing.T) {
	langs, err := hint.NewMap(map[string]string{
		"spanish": "es",
		"español": "es",
		"french":  "fr",
	})
	if err != nil {
		t.Fatalf("NewMap error: %v", err)
	}

	all := langRows(langs, "")
	if len(all) != 3 {
		t.Fatalf("rows = %d, want 3", len(all))
	}

	spanish := langRows(langs, " ES ")
	if len(spanish) != 2 {
		t.Fatalf("rows = %#v, want two spanish hints", spanish)
	}
	for _, row := range spanish {
		if row[1] != "es" {
			t.Fatalf("row %#v does not map to es", row)
		}
	}

	if rows := langRows(langs, "ja"); len(rows) != 0 {
		t.Fatalf("rows = %#v, want none", rows)
	}
}

func TestRenderTableIncludesCells(t *testing.T) {
	out := renderTable([]string{"HINT", "CODE"}, [][]string{{"italian", "it"}})

	for _, want := range []string{"HINT", "CODE", "italian", "it"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderStatus(t *testing.T) {
	resp := status.Response{
		Status: "ready",
		Snapshot: diag.Snapshot{
			UptimeSeconds:  3725,
			State:          bus.StateConnected,
			LastLogon:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Translations:   7,
			Reconnects:     2,
			HeapAllocBytes: 3 << 20,
			Goroutines:     12,
		},
	}

	out := renderStatus(resp)
	for _, want := range []string{"ready", "Connected", "1h2m5s", "2026-03-01T12:00:00Z", "never", "3.0 MiB", "12"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status table missing %q:\n%s", want, out)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{in: 0, want: "0 B"},
		{in: 512, want: "512 B"},
		{in: 1536, want: "1.5 KiB"},
		{in: 5 << 30, want: "5.0 GiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Fatalf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
