package errors

import (
	"strings"
	"unicode"
)

// ValidatePath validates a document path requested relative to a served root.
// It prevents path traversal and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateOverrideName validates the long name of a command-line option
// supplied as a caller override (e.g. "--set rate=16000").
// Names may not be empty or contain whitespace or the directive delimiters
// that would make them unreachable from a \cm[...] reference.
func ValidateOverrideName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "option name cannot be empty")
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "option name %q contains whitespace", name)
		}
	}
	if strings.ContainsAny(name, "(){}[]:") {
		return New(ErrCodeInvalidInput, "option name %q contains reserved characters", name)
	}
	return nil
}
