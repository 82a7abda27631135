package cmd

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"xlatorbot/pkg/config"
	"xlatorbot/pkg/hint"
)

type stubTranslator struct {
	reply string
	err   error

	mu    sync.Mutex
	calls []string
}

func (s *stubTranslator) Translate(_ context.Context, text string, lang string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, lang+"|"+text)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubTranslator) Health(context.Context) error { return nil }

func defaultHints() config.HintsConfig {
	return config.HintsConfig{
		DefaultLanguage: config.DefaultLanguage,
		Separators:      config.DefaultSeparators,
		Ranges:          append([]string(nil), config.DefaultRanges...),
	}
}

func mustParser(t *testing.T, cfg config.HintsConfig) *hint.Parser {
	t.Helper()

	parser, err := newParser(cfg)
	if err != nil {
		t.Fatalf("newParser error: %v", err)
	}
	return parser
}

func TestIsExitCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "exit", want: true},
		{input: " quit ", want: true},
		{input: ":q", want: true},
		{input: "EXIT", want: true},
		{input: "Spanish: exit", want: false},
		{input: "quit now", want: false},
	}

	for _, tt := range tests {
		if got := isExitCommand(tt.input); got != tt.want {
			t.Fatalf("isExitCommand(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestReplyLines(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantOut []string
	}{
		{name: "single line", input: "hola", wantOut: []string{"hola"}},
		{name: "multi line", input: "uno\ndos", wantOut: []string{"uno", "dos"}},
		{name: "trim outer whitespace", input: "  uno\ndos  ", wantOut: []string{"uno", "dos"}},
		{name: "empty input", input: "   ", wantOut: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := replyLines(tt.input)
			if !reflect.DeepEqual(got, tt.wantOut) {
				t.Fatalf("replyLines(%q) = %#v, want %#v", tt.input, got, tt.wantOut)
			}
		})
	}
}

func TestResolveTextPrefersFlag(t *testing.T) {
	t.Cleanup(func() { hintText = "" })

	hintText = "  Italian: ciao  "
	if got := resolveText([]string{"ignored"}); got != "Italian: ciao" {
		t.Fatalf("resolveText = %q", got)
	}

	hintText = ""
	if got := resolveText([]string{"French:", "bonjour"}); got != "French: bonjour" {
		t.Fatalf("resolveText = %q", got)
	}
	if got := resolveText(nil); got != "" {
		t.Fatalf("resolveText(nil) = %q, want empty", got)
	}
}

func TestNewParserAppliesConfig(t *testing.T) {
	parser := mustParser(t, defaultHints())
	got := parser.Parse("Italian: good morning")
	if got.Lang != "it" || got.Text != "good morning" {
		t.Fatalf("Parse = %+v", got)
	}

	cfg := defaultHints()
	cfg.DefaultLanguage = "de"
	cfg.Separators = ":"
	parser = mustParser(t, cfg)

	if got := parser.Parse("hello"); got.Lang != "de" {
		t.Fatalf("Parse lang = %q, want de", got.Lang)
	}
	if got := parser.Parse("french - salut"); got.Lang != "fr" || got.Text != "- salut" {
		t.Fatalf("Parse = %+v, want fr with dash kept", got)
	}
}

func TestNewParserRejectsBadRange(t *testing.T) {
	cfg := defaultHints()
	cfg.Ranges = []string{"zz-10"}

	if _, err := newParser(cfg); err == nil {
		t.Fatal("expected error for malformed range")
	}
}

func TestNewParserRejectsMissingMapFile(t *testing.T) {
	cfg := defaultHints()
	cfg.File = t.TempDir() + "/missing.yaml"

	if _, err := newParser(cfg); err == nil {
		t.Fatal("expected error for missing language map")
	}
}

func TestDescribeHintWithTranslation(t *testing.T) {
	parser := mustParser(t, defaultHints())
	translator := &stubTranslator{reply: "hello friend"}

	var out bytes.Buffer
	describeHint(context.Background(), &out, parser, translator, "Spanish - hola amigo")

	got := out.String()
	for _, want := range []string{`lang: es (hint "spanish")`, "text: hola amigo", "🌐 hello friend"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if !reflect.DeepEqual(translator.calls, []string{"es|hola amigo"}) {
		t.Fatalf("translator calls = %#v", translator.calls)
	}
}

func TestDescribeHintDefaultWithoutTranslator(t *testing.T) {
	parser := mustParser(t, defaultHints())

	var out bytes.Buffer
	describeHint(context.Background(), &out, parser, nil, "<b>good</b> night")

	if got := out.String(); got != "lang: en (default)\ntext: good night\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestDescribeHintReportsTranslationFailure(t *testing.T) {
	parser := mustParser(t, defaultHints())
	translator := &stubTranslator{err: errors.New("quota exceeded")}

	var out bytes.Buffer
	describeHint(context.Background(), &out, parser, translator, "German: thanks")

	if !strings.Contains(out.String(), "translation failed: quota exceeded") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunInteractiveStopsOnExit(t *testing.T) {
	parser := mustParser(t, defaultHints())
	in := strings.NewReader("Spanish: hola\n\nquit\nFrench: jamais\n")

	var out bytes.Buffer
	runInteractive(context.Background(), in, &out, parser, nil)

	got := out.String()
	if !strings.Contains(got, "lang: es") {
		t.Fatalf("output missing spanish hint:\n%s", got)
	}
	if strings.Contains(got, "lang: fr") {
		t.Fatalf("input after quit was processed:\n%s", got)
	}
}
