package smileconf

import (
	"strings"
	"unicode"
)

// lineKind is the classification of one trimmed input line.
type lineKind int

const (
	lineSkip lineKind = iota // blank, comment, or inside a block comment
	lineInclude
	lineHeader
	lineProperty
)

var commentPrefixes = []string{";", "//", "#", "%"}

const (
	blockCommentOpen  = "/*"
	blockCommentClose = "*/"
	includeOpen       = `\{`
	includeClose      = "}"
)

// classify returns the kind of a trimmed line. inBlock is the block comment
// state carried from the previous line, including across file boundaries;
// classify updates it.
// Line comments are recognized first, so "// note */" inside a block does
// not end it.
func classify(line string, inBlock *bool) lineKind {
	if line == "" {
		return lineSkip
	}
	for _, p := range commentPrefixes {
		if strings.HasPrefix(line, p) {
			return lineSkip
		}
	}
	if *inBlock {
		if strings.HasSuffix(line, blockCommentClose) {
			*inBlock = false
		}
		return lineSkip
	}
	if strings.HasPrefix(line, blockCommentOpen) {
		closed := len(line) >= len(blockCommentOpen)+len(blockCommentClose) &&
			strings.HasSuffix(line, blockCommentClose)
		*inBlock = !closed
		return lineSkip
	}
	// A stray terminator outside a block is ignored.
	if strings.HasSuffix(line, blockCommentClose) {
		return lineSkip
	}
	switch {
	case strings.HasPrefix(line, includeOpen):
		return lineInclude
	case strings.HasPrefix(line, "["):
		return lineHeader
	}
	return lineProperty
}

// splitLines splits text on "\r\n", "\n" and bare "\r" line endings.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// parseInclude extracts the path from "\{path}". A trailing backslash before
// the closing brace ("\{path\}") is accepted and dropped.
func parseInclude(line string) (string, error) {
	if !strings.HasPrefix(line, includeOpen) || !strings.HasSuffix(line, includeClose) {
		return "", newDirectiveError(ErrMalformedIncludeDirective, "expected \\{path}, got %q", line)
	}
	path := line[len(includeOpen) : len(line)-len(includeClose)]
	path = strings.TrimSuffix(path, `\`)
	if strings.TrimSpace(path) == "" {
		return "", newDirectiveError(ErrMalformedIncludeDirective, "empty include path")
	}
	return path, nil
}

// parseHeader extracts name and type from "[name:type]".
func parseHeader(line string) (name, typ string, err error) {
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
		return "", "", newDirectiveError(ErrMalformedSectionHeader, "expected [name:type], got %q", line)
	}
	name, typ, ok := strings.Cut(line[1:len(line)-1], ":")
	if !ok {
		return "", "", newDirectiveError(ErrMalformedSectionHeader, "missing ':' between name and type in %q", line)
	}
	if !isIdentifier(name) {
		return "", "", newDirectiveError(ErrMalformedSectionHeader, "invalid section name %q", name)
	}
	if !isIdentifier(typ) {
		return "", "", newDirectiveError(ErrMalformedSectionHeader, "invalid section type %q", typ)
	}
	return name, typ, nil
}

// parseProperty splits "name = value" on the first "=".
func parseProperty(line string) (name, raw string, err error) {
	name, raw, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", newDirectiveError(ErrMalformedProperty, "expected name = value, got %q", line)
	}
	name = strings.TrimRightFunc(name, unicode.IsSpace)
	if name == "" {
		return "", "", newDirectiveError(ErrMalformedProperty, "missing property name in %q", line)
	}
	return name, strings.TrimLeftFunc(raw, unicode.IsSpace), nil
}

// isIdentifier reports whether s is a non-empty run of letters, digits and
// underscores.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
