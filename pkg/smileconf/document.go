package smileconf

import (
	"fmt"
	"maps"
)

// Property is one "name = value" line of a section.
type Property struct {
	Name  string
	Value Value
}

// Section is one component declaration, "[name:type]", and its properties.
// Properties keep the order in which their names were first assigned;
// reassigning a name overwrites the value in place.
type Section struct {
	Name string
	Type string

	props []Property
	index map[string]int
}

// NewSection creates an empty section.
func NewSection(name, typ string) *Section {
	return &Section{Name: name, Type: typ, index: make(map[string]int)}
}

// Set assigns a property, overwriting any existing value with the same name.
func (s *Section) Set(name string, v Value) {
	if i, ok := s.index[name]; ok {
		s.props[i].Value = v
		return
	}
	s.index[name] = len(s.props)
	s.props = append(s.props, Property{Name: name, Value: v})
}

// Get returns the value of the named property.
func (s *Section) Get(name string) (Value, bool) {
	i, ok := s.index[name]
	if !ok {
		return Value{}, false
	}
	return s.props[i].Value, true
}

// Properties returns the section's properties in first-assignment order.
func (s *Section) Properties() []Property {
	out := make([]Property, len(s.props))
	copy(out, s.props)
	return out
}

// Len returns the number of distinct properties.
func (s *Section) Len() int { return len(s.props) }

// CommandLineOption is a command-line option registered by a \cm[...]
// directive that carries a default value.
type CommandLineOption struct {
	Long        string
	Short       string
	Default     string
	Description string
}

// Diagnostic is a non-fatal condition found while parsing, such as an
// include that could not be found.
type Diagnostic struct {
	File    string
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	if d.File == "" {
		return d.Message
	}
	return fmt.Sprintf("%s:%d: %s", d.File, d.Line, d.Message)
}

// Document is the parsed form of a configuration file and everything it
// includes. It is built once by [Parse] and not modified afterwards.
type Document struct {
	// Path is the absolute path of the top-level file.
	Path string

	sections  map[string]*Section
	order     []string
	options   map[string]CommandLineOption
	optOrder  []string
	overrides map[string]string
	files     []string
	diags     []Diagnostic
}

func newDocument(path string, overrides map[string]string) *Document {
	return &Document{
		Path:      path,
		sections:  make(map[string]*Section),
		options:   make(map[string]CommandLineOption),
		overrides: maps.Clone(overrides),
	}
}

// Section returns the section with the given name.
func (d *Document) Section(name string) (*Section, bool) {
	s, ok := d.sections[name]
	return s, ok
}

// Sections returns all sections in the order their headers first appeared.
func (d *Document) Sections() []*Section {
	out := make([]*Section, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.sections[name])
	}
	return out
}

// Len returns the number of sections.
func (d *Document) Len() int { return len(d.order) }

// CommandLineOption returns the registered option with the given long name.
func (d *Document) CommandLineOption(long string) (CommandLineOption, bool) {
	o, ok := d.options[long]
	return o, ok
}

// CommandLineOptions returns the registered options in registration order.
func (d *Document) CommandLineOptions() []CommandLineOption {
	out := make([]CommandLineOption, 0, len(d.optOrder))
	for _, long := range d.optOrder {
		out = append(out, d.options[long])
	}
	return out
}

// Overrides returns a copy of the caller-supplied option overrides.
func (d *Document) Overrides() map[string]string { return maps.Clone(d.overrides) }

// Files returns the absolute paths of every file read, in reading order.
// A file included more than once appears once per inclusion.
func (d *Document) Files() []string { return append([]string(nil), d.files...) }

// Diagnostics returns the non-fatal conditions found while parsing.
func (d *Document) Diagnostics() []Diagnostic { return append([]Diagnostic(nil), d.diags...) }

// openSection returns the section named name, creating it if needed.
// An existing section keeps its original type.
func (d *Document) openSection(name, typ string) *Section {
	if s, ok := d.sections[name]; ok {
		return s
	}
	s := NewSection(name, typ)
	d.sections[name] = s
	d.order = append(d.order, name)
	return s
}

// registerOption records o, replacing any earlier option with the same long
// name. Registration order is that of first registration.
func (d *Document) registerOption(o CommandLineOption) {
	if _, ok := d.options[o.Long]; !ok {
		d.optOrder = append(d.optOrder, o.Long)
	}
	d.options[o.Long] = o
}

// resolve returns the value for a command-line option: the caller override
// if present, else the registered default.
func (d *Document) resolve(long string) (string, bool) {
	if v, ok := d.overrides[long]; ok {
		return v, true
	}
	if o, ok := d.options[long]; ok {
		return o.Default, true
	}
	return "", false
}
