package hint

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed langs.yaml
var defaultLangs []byte

// Map is an immutable hint-token to language-code table. The zero value is an
// empty map.
type Map struct {
	codes map[string]string
}

type mapFile struct {
	Hints map[string]string `yaml:"hints"`
}

// NewMap normalizes tokens to lowercase and rejects empty or conflicting entries.
func NewMap(entries map[string]string) (Map, error) {
	codes := make(map[string]string, len(entries))
	for rawToken, rawCode := range entries {
		token := foldToken(strings.TrimSpace(rawToken))
		code := strings.TrimSpace(rawCode)
		if token == "" {
			return Map{}, errors.New("hint token must not be empty")
		}
		if code == "" {
			return Map{}, fmt.Errorf("hint %q has no language code", rawToken)
		}
		if existing, ok := codes[token]; ok && existing != code {
			return Map{}, fmt.Errorf("hint %q maps to both %q and %q", token, existing, code)
		}
		codes[token] = code
	}

	return Map{codes: codes}, nil
}

// ParseMap decodes a YAML document of the form "hints: {italian: it}".
func ParseMap(data []byte) (Map, error) {
	var file mapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Map{}, fmt.Errorf("parse language map: %w", err)
	}
	if len(file.Hints) == 0 {
		return Map{}, errors.New("language map has no hints")
	}

	return NewMap(file.Hints)
}

// LoadMap reads the language map from path, or the built-in map when path is empty.
func LoadMap(path string) (Map, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ParseMap(defaultLangs)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Map{}, fmt.Errorf("read language map: %w", err)
	}

	return ParseMap(content)
}

// Lookup returns the language code for an already-lowercased token.
func (m Map) Lookup(token string) (string, bool) {
	code, ok := m.codes[token]
	return code, ok
}

// Len returns the number of hint tokens.
func (m Map) Len() int {
	return len(m.codes)
}

// Tokens returns all hint tokens in sorted order.
func (m Map) Tokens() []string {
	tokens := make([]string, 0, len(m.codes))
	for token := range m.codes {
		tokens = append(tokens, token)
	}
	slices.Sort(tokens)

	return tokens
}

// foldToken lowercases with full Unicode rules. A Caser is stateful, so one is
// built per call to keep the parser safe for concurrent use.
func foldToken(token string) string {
	return cases.Lower(language.Und).String(token)
}
