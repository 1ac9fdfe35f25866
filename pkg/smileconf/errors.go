package smileconf

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per parse failure kind. A [*ParseError] unwraps to
// exactly one of these, so callers can test the kind with errors.Is.
var (
	ErrMalformedMacroDirective     = errors.New("malformed \\cm directive")
	ErrMalformedIncludeDirective   = errors.New("malformed include directive")
	ErrMalformedSectionHeader      = errors.New("malformed section header")
	ErrMalformedProperty           = errors.New("malformed property")
	ErrPropertyBeforeSection       = errors.New("property before section header")
	ErrUnresolvedCommandLineOption = errors.New("unresolved command-line option")
	ErrCyclicInclude               = errors.New("cyclic include")
	ErrOutsideRoot                 = errors.New("path outside root directory")
)

// ParseError reports a failure at a specific line of a document.
type ParseError struct {
	Kind error  // one of the Err* sentinels
	File string // absolute path of the file being read
	Line int    // 1-based line number
	Text string // the offending line, trimmed
	Msg  string // optional detail
}

func (e *ParseError) Error() string {
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.File == "" {
		return msg
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, msg)
}

// Unwrap returns the sentinel for the error kind.
func (e *ParseError) Unwrap() error { return e.Kind }

// directiveError is returned by the line-level productions, which do not
// know the file or line they are working on. The parser converts it into
// a *ParseError.
type directiveError struct {
	kind error
	msg  string
}

func (e *directiveError) Error() string { return e.kind.Error() + ": " + e.msg }
func (e *directiveError) Unwrap() error { return e.kind }

func newDirectiveError(kind error, format string, args ...any) error {
	return &directiveError{kind: kind, msg: fmt.Sprintf(format, args...)}
}
