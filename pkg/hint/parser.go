// Package hint extracts a leading language hint ("Italian: ...") from chat
// message text and resolves it to a target language code.
package hint

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultLang is the target language used when a message carries no known hint.
const DefaultLang = "en"

// minTokenLength keeps short words like "a" or "I" from being read as hints.
const minTokenLength = 2

// RuneRange is an inclusive range of code points accepted inside a hint token
// in addition to ASCII word characters.
type RuneRange struct {
	Lo rune
	Hi rune
}

// String renders the range in the same "00BF-1FFF" form ParseRange accepts.
func (r RuneRange) String() string {
	return fmt.Sprintf("%04X-%04X", r.Lo, r.Hi)
}

// Policy controls which tokens and separators the parser recognizes.
type Policy struct {
	// Ranges lists extra letter ranges (Latin-1 and above) allowed in tokens.
	Ranges []RuneRange
	// Separators lists the characters that may follow the token, e.g. ":->.,;".
	// At most one separator is consumed.
	Separators string
	// DefaultLang is returned when no hint matches. Empty means DefaultLang.
	DefaultLang string
}

// DefaultPolicy accepts extended Latin, Greek, Cyrillic and most other
// non-CJK-symbol scripts up to U+D7FF, and the separators ": - > . , ;".
func DefaultPolicy() Policy {
	return Policy{
		Ranges: []RuneRange{
			{Lo: 0x00BF, Hi: 0x1FFF},
			{Lo: 0x2C00, Hi: 0xD7FF},
		},
		Separators:  ":->.,;",
		DefaultLang: DefaultLang,
	}
}

// ParseRange parses "00BF-1FFF" (hex, optional U+ prefixes) into a RuneRange.
func ParseRange(value string) (RuneRange, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(value), "-")
	if !ok {
		return RuneRange{}, fmt.Errorf("range %q must look like 00BF-1FFF", value)
	}

	loRune, err := parseCodePoint(lo)
	if err != nil {
		return RuneRange{}, fmt.Errorf("range %q: %w", value, err)
	}
	hiRune, err := parseCodePoint(hi)
	if err != nil {
		return RuneRange{}, fmt.Errorf("range %q: %w", value, err)
	}

	r := RuneRange{Lo: loRune, Hi: hiRune}
	if err := r.validate(); err != nil {
		return RuneRange{}, err
	}

	return r, nil
}

func parseCodePoint(value string) (rune, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(strings.TrimPrefix(value, "U+"), "u+")
	n, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid code point %q", value)
	}

	return rune(n), nil
}

func (r RuneRange) validate() error {
	switch {
	case r.Lo > r.Hi:
		return fmt.Errorf("range %s is inverted", r)
	case r.Hi > unicode.MaxRune:
		return fmt.Errorf("range %s exceeds the unicode range", r)
	case r.Lo <= 0xDFFF && r.Hi >= 0xD800:
		return fmt.Errorf("range %s overlaps the surrogate block", r)
	}

	return nil
}

// Result is the outcome of parsing one message.
type Result struct {
	// Lang is the resolved target language code.
	Lang string
	// Text is the message with the hint prefix removed, or the input unchanged
	// when no hint matched.
	Text string
	// Token is the lowercased hint token that matched, if any.
	Token string
	// Matched reports whether a known hint was found.
	Matched bool
}

// Parser resolves language hints against an immutable Map. A Parser holds no
// mutable state and is safe for concurrent use.
type Parser struct {
	langs       Map
	pattern     *regexp.Regexp
	defaultLang string
}

// NewParser compiles the hint pattern for the given policy.
func NewParser(langs Map, policy Policy) (*Parser, error) {
	expr, err := policy.expression()
	if err != nil {
		return nil, err
	}

	pattern, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile hint pattern: %w", err)
	}

	defaultLang := strings.TrimSpace(policy.DefaultLang)
	if defaultLang == "" {
		defaultLang = DefaultLang
	}

	return &Parser{langs: langs, pattern: pattern, defaultLang: defaultLang}, nil
}

// expression builds ^\s*([word]{2,})\s*[sep]?\s* for the policy.
func (p Policy) expression() (string, error) {
	var word strings.Builder
	word.WriteString(`\w`)
	for _, r := range p.Ranges {
		if err := r.validate(); err != nil {
			return "", err
		}
		fmt.Fprintf(&word, `\x{%X}-\x{%X}`, r.Lo, r.Hi)
	}

	var seps strings.Builder
	for _, r := range p.Separators {
		if unicode.IsSpace(r) {
			continue
		}
		if r == utf8.RuneError {
			return "", errors.New("separators contain invalid utf-8")
		}
		fmt.Fprintf(&seps, `\x{%X}`, r)
	}

	expr := `^\s*([` + word.String() + `]{` + strconv.Itoa(minTokenLength) + `,})\s*`
	if seps.Len() > 0 {
		expr += `[` + seps.String() + `]?\s*`
	}

	return expr, nil
}

// Parse extracts the hint at the very start of text. Only the first token is
// considered; hints later in the text are left alone.
func (p *Parser) Parse(text string) Result {
	result := Result{Lang: p.defaultLang, Text: text}

	loc := p.pattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return result
	}

	token := foldToken(text[loc[2]:loc[3]])
	code, ok := p.langs.Lookup(token)
	if !ok {
		return result
	}

	return Result{
		Lang:    code,
		Text:    text[loc[1]:],
		Token:   token,
		Matched: true,
	}
}

// DefaultLang returns the language used when no hint matches.
func (p *Parser) DefaultLang() string {
	return p.defaultLang
}
