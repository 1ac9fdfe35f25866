package smileconf

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/text/encoding/charmap"
)

// ParseOption configures [Parse].
type ParseOption func(*parser)

// WithLogger sets the logger that receives diagnostics and debug output.
// By default nothing is logged; diagnostics are still available from
// [Document.Diagnostics].
func WithLogger(l *log.Logger) ParseOption {
	return func(p *parser) { p.logger = l }
}

// WithRoot confines parsing to files below dir. The top-level file and
// every include must resolve, after following symlinks, to a path inside
// dir; anything else fails with [ErrOutsideRoot].
func WithRoot(dir string) ParseOption {
	return func(p *parser) { p.root = dir }
}

// Parse reads the document at path, following include directives, and
// returns its structured model. overrides maps command-line option long
// names to values and takes precedence over defaults declared in the
// document; it is copied and never modified.
//
// Syntax errors are returned as *[ParseError]. A missing top-level file is
// returned as the underlying *fs.PathError; a missing included file only
// produces a diagnostic.
func Parse(path string, overrides map[string]string, opts ...ParseOption) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	p := &parser{
		doc:    newDocument(abs, overrides),
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.root != "" {
		dir, err := filepath.Abs(p.root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", p.root, err)
		}
		p.root = dir
		if !p.insideRoot(abs) {
			return nil, &ParseError{Kind: ErrOutsideRoot, Msg: path}
		}
	}

	root := parseContext{file: abs, dir: filepath.Dir(abs), chain: map[string]bool{abs: true}}
	if err := p.parseFile(root); err != nil {
		return nil, err
	}
	p.logger.Debug("parsed config",
		"file", abs,
		"sections", p.doc.Len(),
		"files", len(p.doc.files),
		"diagnostics", len(p.doc.diags))
	return p.doc, nil
}

// parseContext describes the file being read. It is never modified; each
// include gets a fresh context from descend.
type parseContext struct {
	file  string          // absolute path
	dir   string          // base directory for relative includes
	chain map[string]bool // files on the current include chain, including file
}

func (c parseContext) descend(abs string) parseContext {
	chain := maps.Clone(c.chain)
	chain[abs] = true
	return parseContext{file: abs, dir: filepath.Dir(abs), chain: chain}
}

// parser holds the mutable state of a single Parse call. It is shared by
// every file in the include tree.
type parser struct {
	doc     *Document
	current *Section
	inBlock bool
	logger  *log.Logger
	root    string // absolute; empty means unrestricted
}

func (p *parser) parseFile(pc parseContext) error {
	text, err := readDocument(pc.file)
	if err != nil {
		return err
	}
	p.doc.files = append(p.doc.files, pc.file)
	p.logger.Debug("reading config", "file", pc.file)

	for i, raw := range splitLines(text) {
		line := strings.TrimSpace(raw)
		if err := p.parseLine(pc, i+1, line); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseLine(pc parseContext, lineNo int, line string) error {
	fail := func(err error) error {
		var de *directiveError
		if errors.As(err, &de) {
			return &ParseError{Kind: de.kind, File: pc.file, Line: lineNo, Text: line, Msg: de.msg}
		}
		return err
	}

	switch classify(line, &p.inBlock) {
	case lineSkip:
		return nil

	case lineInclude:
		target, err := parseInclude(line)
		if err != nil {
			return fail(err)
		}
		if target, err = p.doc.expandFirst(target); err != nil {
			return fail(err)
		}
		return p.include(pc, lineNo, line, target)

	case lineHeader:
		name, typ, err := parseHeader(line)
		if err != nil {
			return fail(err)
		}
		if s, ok := p.doc.Section(name); ok && s.Type != typ {
			p.diagnose(pc, lineNo, "section %q reopened with type %q, keeping %q", name, typ, s.Type)
		}
		p.current = p.doc.openSection(name, typ)
		return nil

	default:
		if p.current == nil {
			return &ParseError{Kind: ErrPropertyBeforeSection, File: pc.file, Line: lineNo, Text: line}
		}
		name, raw, err := parseProperty(line)
		if err != nil {
			return fail(err)
		}
		if raw, err = p.doc.expandFirst(raw); err != nil {
			return fail(err)
		}
		p.current.Set(name, ParseValue(raw))
		return nil
	}
}

// include parses target in place of the current line.
func (p *parser) include(pc parseContext, lineNo int, line, target string) error {
	if !filepath.IsAbs(target) {
		target = filepath.Join(pc.dir, target)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolve include %s: %w", target, err)
	}
	if pc.chain[abs] {
		return &ParseError{
			Kind: ErrCyclicInclude,
			File: pc.file,
			Line: lineNo,
			Text: line,
			Msg:  fmt.Sprintf("%s is already being included", abs),
		}
	}
	if p.root != "" && !p.insideRoot(abs) {
		return &ParseError{
			Kind: ErrOutsideRoot,
			File: pc.file,
			Line: lineNo,
			Text: line,
			Msg:  target,
		}
	}
	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		p.diagnose(pc, lineNo, "included file %s not found", abs)
		return nil
	}
	return p.parseFile(pc.descend(abs))
}

// insideRoot reports whether path lies below p.root, both lexically and
// once symlinks are resolved. Paths that do not exist are judged lexically.
func (p *parser) insideRoot(path string) bool {
	if !within(p.root, path) {
		return false
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return true
	}
	root, err := filepath.EvalSymlinks(p.root)
	if err != nil {
		root = p.root
	}
	return within(root, resolved)
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func (p *parser) diagnose(pc parseContext, lineNo int, format string, args ...any) {
	d := Diagnostic{File: pc.file, Line: lineNo, Message: fmt.Sprintf(format, args...)}
	p.doc.diags = append(p.doc.diags, d)
	p.logger.Warn(d.Message, "file", d.File, "line", d.Line)
}

// readDocument reads a whole file as ISO-8859-1 text. Every byte maps to
// exactly one rune, so decoding never fails.
func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return string(text), nil
}
