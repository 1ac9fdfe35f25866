package dataflow

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/conf2dot/pkg/smileconf"
)

const (
	// ManagerType is the section type of the top-level component manager.
	ManagerType = "cComponentManager"

	// LevelSuffix marks properties that name data memory levels.
	LevelSuffix = ".dmLevel"
)

// Component is a node of the graph: one non-manager section.
type Component struct {
	Name string
	Type string
}

// Edge is a read or write relationship between a component and a level.
type Edge struct {
	Component string
	Level     string
}

// Graph holds the components, levels and read/write edges of a document.
// Every slice is deduplicated and ordered by first appearance, following
// section order and then property order.
type Graph struct {
	Components []Component
	Levels     []string
	Writes     []Edge
	Reads      []Edge

	// Warnings lists ".dmLevel" properties that could not be classified.
	Warnings []string
}

// Option configures [Build].
type Option func(*builder)

// WithLogger sets the logger that receives classification warnings.
func WithLogger(l *log.Logger) Option {
	return func(b *builder) { b.logger = l }
}

// Build classifies the ".dmLevel" properties of doc into a [Graph].
func Build(doc *smileconf.Document, opts ...Option) *Graph {
	b := &builder{
		g:      &Graph{},
		logger: log.New(io.Discard),
		levels: make(map[string]bool),
		writes: make(map[Edge]bool),
		reads:  make(map[Edge]bool),
	}
	for _, opt := range opts {
		opt(b)
	}

	for _, s := range doc.Sections() {
		if s.Type == ManagerType {
			continue
		}
		b.g.Components = append(b.g.Components, Component{Name: s.Name, Type: s.Type})
		for _, p := range s.Properties() {
			b.classify(s, p)
		}
	}

	b.logger.Debug("built data flow graph",
		"components", len(b.g.Components),
		"levels", len(b.g.Levels),
		"writes", len(b.g.Writes),
		"reads", len(b.g.Reads))
	return b.g
}

type builder struct {
	g      *Graph
	logger *log.Logger
	levels map[string]bool
	writes map[Edge]bool
	reads  map[Edge]bool
}

func (b *builder) classify(s *smileconf.Section, p smileconf.Property) {
	if !strings.HasSuffix(p.Name, LevelSuffix) {
		return
	}
	name := strings.ToLower(p.Name)
	isReader := strings.Contains(name, "reader")
	isWriter := strings.Contains(name, "writer")

	if !isReader && !isWriter {
		msg := fmt.Sprintf("property %s of component %s:%s references a data memory level but is neither a reader nor a writer",
			p.Name, s.Name, s.Type)
		b.g.Warnings = append(b.g.Warnings, msg)
		b.logger.Warn(msg)
		return
	}

	for _, level := range p.Value.Items() {
		e := Edge{Component: s.Name, Level: level}
		if isReader && !b.reads[e] {
			b.reads[e] = true
			b.g.Reads = append(b.g.Reads, e)
			b.addLevel(level)
		}
		if isWriter && !b.writes[e] {
			b.writes[e] = true
			b.g.Writes = append(b.g.Writes, e)
			b.addLevel(level)
		}
	}
}

func (b *builder) addLevel(level string) {
	if b.levels[level] {
		return
	}
	b.levels[level] = true
	b.g.Levels = append(b.g.Levels, level)
}

// ReadersOf returns the components reading level, in edge order.
func (g *Graph) ReadersOf(level string) []string {
	return collect(g.Reads, func(e Edge) (string, bool) { return e.Component, e.Level == level })
}

// WritersOf returns the components writing level, in edge order.
func (g *Graph) WritersOf(level string) []string {
	return collect(g.Writes, func(e Edge) (string, bool) { return e.Component, e.Level == level })
}

// LevelsReadBy returns the levels component reads, in edge order.
func (g *Graph) LevelsReadBy(component string) []string {
	return collect(g.Reads, func(e Edge) (string, bool) { return e.Level, e.Component == component })
}

// LevelsWrittenBy returns the levels component writes, in edge order.
func (g *Graph) LevelsWrittenBy(component string) []string {
	return collect(g.Writes, func(e Edge) (string, bool) { return e.Level, e.Component == component })
}

// Links returns one writer→reader edge for every pair of a write and a read
// of the same level. Pairs sharing several levels appear once per level.
func (g *Graph) Links() []Link {
	var links []Link
	for _, w := range g.Writes {
		for _, r := range g.Reads {
			if w.Level == r.Level {
				links = append(links, Link{From: w.Component, To: r.Component, Level: w.Level})
			}
		}
	}
	return links
}

// Link is a direct component-to-component connection through a level.
type Link struct {
	From  string
	To    string
	Level string
}

func collect(edges []Edge, pick func(Edge) (string, bool)) []string {
	var out []string
	for _, e := range edges {
		if v, ok := pick(e); ok {
			out = append(out, v)
		}
	}
	return out
}
