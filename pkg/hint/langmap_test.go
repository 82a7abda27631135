package hint

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewMapLowercasesTokens(t *testing.T) {
	langs, err := NewMap(map[string]string{"Italian": "it", " ΕΛΛΗΝΙΚΆ ": "el"})
	if err != nil {
		t.Fatalf("NewMap error: %v", err)
	}

	if code, ok := langs.Lookup("italian"); !ok || code != "it" {
		t.Fatalf("Lookup(italian) = %q, %v", code, ok)
	}
	if code, ok := langs.Lookup("ελληνικά"); !ok || code != "el" {
		t.Fatalf("Lookup(ελληνικά) = %q, %v", code, ok)
	}
	if langs.Len() != 2 {
		t.Fatalf("Len = %d, want 2", langs.Len())
	}
}

func TestNewMapRejectsInvalidEntries(t *testing.T) {
	tests := map[string]map[string]string{
		"empty token": {" ": "it"},
		"empty code":  {"italian": " "},
		"conflict":    {"Italian": "it", "italian": "fr"},
	}

	for name, entries := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewMap(entries); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadMapDefaults(t *testing.T) {
	langs, err := LoadMap("")
	if err != nil {
		t.Fatalf("LoadMap error: %v", err)
	}

	for token, want := range map[string]string{"italian": "it", "spanish": "es", "français": "fr", "norsk": "no"} {
		if got, ok := langs.Lookup(token); !ok || got != want {
			t.Fatalf("Lookup(%q) = %q, %v; want %q", token, got, ok, want)
		}
	}

	tokens := langs.Tokens()
	if len(tokens) != langs.Len() {
		t.Fatalf("Tokens len = %d, want %d", len(tokens), langs.Len())
	}
	for i := 1; i < len(tokens); i++ {
		if tokens[i-1] > tokens[i] {
			t.Fatalf("Tokens not sorted at %d: %q > %q", i, tokens[i-1], tokens[i])
		}
	}
}

func TestLoadMapFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "langs.yaml")
	if err := os.WriteFile(path, []byte("hints:\n  Klingon: tlh\n"), 0o600); err != nil {
		t.Fatalf("write map file: %v", err)
	}

	langs, err := LoadMap(path)
	if err != nil {
		t.Fatalf("LoadMap error: %v", err)
	}
	if code, ok := langs.Lookup("klingon"); !ok || code != "tlh" {
		t.Fatalf("Lookup(klingon) = %q, %v", code, ok)
	}
}

func TestLoadMapErrors(t *testing.T) {
	if _, err := LoadMap(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	if _, err := ParseMap([]byte("hints: {}\n")); err == nil {
		t.Fatal("expected error for empty map")
	}

	if _, err := ParseMap([]byte("hints: [1, 2\n")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
