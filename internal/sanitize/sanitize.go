// Package sanitize cleans untrusted request input before it reaches
// handlers. Strings are trimmed, stripped of markup and HTML-escaped;
// the transformation recurses through maps and slices so nested JSON
// bodies are covered. Sanitization is fail-open: a value that cannot
// be processed passes through unchanged rather than rejecting the
// request.
package sanitize

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"
)

// String trims, strips markup and escapes one value.
func String(s string) string {
	return html.EscapeString(stripMarkup(strings.TrimSpace(s)))
}

// Value recursively sanitizes decoded JSON: strings are cleaned, maps and
// slices are walked, everything else is returned as-is.
func Value(v any) any {
	switch val := v.(type) {
	case string:
		return String(val)
	case map[string]any:
		for k, elem := range val {
			val[k] = Value(elem)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = Value(elem)
		}
		return val
	default:
		return v
	}
}

// Map sanitizes every value of a string map in place and returns it.
func Map(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = Value(v)
	}
	return m
}

// stripMarkup drops tags and the contents of script and style elements,
// keeping only text. Invalid markup degrades to the tokenizer's best
// effort, never to an error.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	var b strings.Builder
	tokenizer := xhtml.NewTokenizer(strings.NewReader(s))
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case xhtml.ErrorToken:
			return b.String()
		case xhtml.StartTagToken:
			name, _ := tokenizer.TagName()
			if dangerousElement(string(name)) {
				skipDepth++
			}
		case xhtml.EndTagToken:
			name, _ := tokenizer.TagName()
			if dangerousElement(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case xhtml.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}
}

func dangerousElement(name string) bool {
	switch name {
	case "script", "style", "iframe", "object", "embed":
		return true
	}
	return false
}
