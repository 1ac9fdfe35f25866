package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/conf2dot/pkg/dataflow"
	"github.com/matzehuels/conf2dot/pkg/smileconf"
)

// Export is the JSON form of a parsed document and its data flow graph.
type Export struct {
	Path        string    `json:"path"`
	Files       []string  `json:"files"`
	Sections    []section `json:"sections"`
	Options     []option  `json:"options"`
	Diagnostics []string  `json:"diagnostics,omitempty"`
	Graph       graph     `json:"graph"`
}

type section struct {
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Properties []property `json:"properties"`
}

type property struct {
	Name  string          `json:"name"`
	Value smileconf.Value `json:"value"`
}

type option struct {
	Long        string `json:"long"`
	Short       string `json:"short,omitempty"`
	Default     string `json:"default"`
	Description string `json:"description,omitempty"`
}

type graph struct {
	Components []component `json:"components"`
	Levels     []string    `json:"levels"`
	Writes     []edge      `json:"writes"`
	Reads      []edge      `json:"reads"`
	Warnings   []string    `json:"warnings,omitempty"`
}

type component struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type edge struct {
	Component string `json:"component"`
	Level     string `json:"level"`
}

// NewExport collects doc and g into their JSON form. Empty lists are
// encoded as [] rather than null.
func NewExport(doc *smileconf.Document, g *dataflow.Graph) Export {
	out := Export{
		Path:     doc.Path,
		Files:    doc.Files(),
		Sections: make([]section, 0, doc.Len()),
		Options:  []option{},
		Graph: graph{
			Components: make([]component, len(g.Components)),
			Levels:     append([]string{}, g.Levels...),
			Writes:     edges(g.Writes),
			Reads:      edges(g.Reads),
			Warnings:   g.Warnings,
		},
	}

	for _, s := range doc.Sections() {
		sec := section{Name: s.Name, Type: s.Type, Properties: []property{}}
		for _, p := range s.Properties() {
			sec.Properties = append(sec.Properties, property{Name: p.Name, Value: p.Value})
		}
		out.Sections = append(out.Sections, sec)
	}
	for _, o := range doc.CommandLineOptions() {
		out.Options = append(out.Options, option(o))
	}
	for _, d := range doc.Diagnostics() {
		out.Diagnostics = append(out.Diagnostics, d.String())
	}
	for i, c := range g.Components {
		out.Graph.Components[i] = component(c)
	}
	return out
}

func edges(in []dataflow.Edge) []edge {
	out := make([]edge, len(in))
	for i, e := range in {
		out[i] = edge(e)
	}
	return out
}

// WriteJSON encodes doc and g as indented JSON and writes it to w.
func WriteJSON(doc *smileconf.Document, g *dataflow.Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewExport(doc, g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes doc and g to a JSON file at path.
func ExportJSON(doc *smileconf.Document, g *dataflow.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(doc, g, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
