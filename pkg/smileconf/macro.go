package smileconf

import "strings"

const (
	directiveOpen  = `\cm[`
	directiveClose = ']'
)

// directive is a parsed \cm[long(short){default}:description] reference.
type directive struct {
	Long        string
	Short       string
	Default     string
	HasDefault  bool
	Description string
}

// findDirective locates the first \cm[...] in s and returns the byte range
// [start, end) it occupies. ok is false when s holds no directive.
func findDirective(s string) (start, end int, ok bool, err error) {
	start = strings.Index(s, directiveOpen)
	if start < 0 {
		return 0, 0, false, nil
	}
	body := start + len(directiveOpen)
	j := strings.IndexByte(s[body:], directiveClose)
	if j < 0 {
		return 0, 0, false, newDirectiveError(ErrMalformedMacroDirective, "missing ']' in %q", s[start:])
	}
	return start, body + j + 1, true, nil
}

// parseDirective parses the text between "\cm[" and "]".
func parseDirective(body string) (directive, error) {
	var d directive
	rest := body
	if k := strings.IndexAny(body, "({:"); k >= 0 {
		d.Long, rest = body[:k], body[k:]
	} else {
		d.Long, rest = body, ""
	}
	if d.Long == "" {
		return d, newDirectiveError(ErrMalformedMacroDirective, "missing option name in \\cm[%s]", body)
	}

	if strings.HasPrefix(rest, "(") {
		e := strings.IndexByte(rest, ')')
		if e < 0 {
			return d, newDirectiveError(ErrMalformedMacroDirective, "missing ')' in \\cm[%s]", body)
		}
		d.Short, rest = rest[1:e], rest[e+1:]
	}

	if strings.HasPrefix(rest, "{") {
		// The default extends to the last '}' that is followed by the end
		// of the directive or by the description.
		e := len(rest) - 1
		for ; e > 0; e-- {
			if rest[e] == '}' && (e+1 == len(rest) || rest[e+1] == ':') {
				break
			}
		}
		if e <= 0 {
			return d, newDirectiveError(ErrMalformedMacroDirective, "missing '}' in \\cm[%s]", body)
		}
		d.Default, d.HasDefault, rest = rest[1:e], true, rest[e+1:]
	}

	if strings.HasPrefix(rest, ":") {
		d.Description, rest = rest[1:], ""
	}
	if rest != "" {
		return d, newDirectiveError(ErrMalformedMacroDirective, "unexpected %q in \\cm[%s]", rest, body)
	}
	return d, nil
}

// expandFirst replaces the first \cm[...] directive in s with its resolved
// value. A directive with a default registers (or re-registers) the option
// before resolution, so a caller override still wins over that default.
//
// Only the first directive is expanded; any later ones are left verbatim.
func (d *Document) expandFirst(s string) (string, error) {
	start, end, ok, err := findDirective(s)
	if err != nil || !ok {
		return s, err
	}
	dir, err := parseDirective(s[start+len(directiveOpen) : end-1])
	if err != nil {
		return s, err
	}
	if dir.HasDefault {
		d.registerOption(CommandLineOption{
			Long:        dir.Long,
			Short:       dir.Short,
			Default:     dir.Default,
			Description: dir.Description,
		})
	}
	v, ok := d.resolve(dir.Long)
	if !ok {
		return s, newDirectiveError(ErrUnresolvedCommandLineOption, "no override or default for %q", dir.Long)
	}
	return s[:start] + v + s[end:], nil
}
