// Package markup turns rich message content into plain text suitable for
// language-hint parsing and translation.
package markup

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ToText strips tags, decodes entities and normalizes whitespace. Block-level
// elements and <br> become line breaks; script and style bodies are dropped.
func ToText(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return normalize(content)
	}

	tokenizer := html.NewTokenizer(strings.NewReader(content))

	var b strings.Builder
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way everything readable is in b.
			return normalize(b.String())
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
			}
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			tag := atom.Lookup(name)
			if tag == atom.Script || tag == atom.Style {
				skipDepth++
				continue
			}
			if breaksLine(tag) {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := atom.Lookup(name)
			if tag == atom.Script || tag == atom.Style {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if breaksLine(tag) {
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if breaksLine(atom.Lookup(name)) {
				b.WriteByte('\n')
			}
		}
	}
}

func breaksLine(tag atom.Atom) bool {
	switch tag {
	case atom.Br, atom.P, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.Tr,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre, atom.Hr:
		return true
	default:
		return false
	}
}

// normalize collapses runs of blank space inside each line, drops empty lines
// and trims the result.
func normalize(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}
