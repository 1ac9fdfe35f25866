package nodelink

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/conf2dot/pkg/dataflow"
)

// Options configures DOT generation.
type Options struct {
	// OmitLevels drops level nodes and connects writers directly to readers.
	OmitLevels bool
}

const (
	componentPrefix = "nodeComponent"
	levelPrefix     = "nodeLevel"
)

// ComponentID returns the DOT node identifier of a component.
func ComponentID(name string) string { return componentPrefix + name }

// LevelID returns the DOT node identifier of a data memory level.
func LevelID(name string) string { return levelPrefix + name }

// ToDOT converts a data flow graph to Graphviz DOT format.
//
// Components become filled boxes labeled with name and type, levels become
// filled ellipses. Writes are emitted as component -> level edges before
// reads as level -> component edges. With [Options.OmitLevels] only
// component nodes are emitted and every writer/reader pair sharing a level
// gets one edge per shared level.
func ToDOT(g *dataflow.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")

	for _, c := range g.Components {
		writeNode(&buf, ComponentID(c.Name), c.Name+"\n"+c.Type, "box", "gray85")
	}

	if opts.OmitLevels {
		for _, l := range g.Links() {
			writeEdge(&buf, ComponentID(l.From), ComponentID(l.To))
		}
		buf.WriteString("}\n")
		return buf.String()
	}

	for _, level := range g.Levels {
		writeNode(&buf, LevelID(level), level, "ellipse", "gray95")
	}
	for _, e := range g.Writes {
		writeEdge(&buf, ComponentID(e.Component), LevelID(e.Level))
	}
	for _, e := range g.Reads {
		writeEdge(&buf, LevelID(e.Level), ComponentID(e.Component))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeNode(buf *bytes.Buffer, id, label, shape, fill string) {
	fmt.Fprintf(buf, "    %s [label=%s, shape=%s, fillcolor=%s, style=\"filled\"];\n",
		quote(id), quote(label), quote(shape), quote(fill))
}

func writeEdge(buf *bytes.Buffer, from, to string) {
	fmt.Fprintf(buf, "    %s -> %s;\n", quote(from), quote(to))
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r\n", `\n`, "\n", `\n`)

// quote returns s as a DOT double-quoted string. Only quotes, backslashes
// and newlines are escaped; every other rune is written as is.
func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}
