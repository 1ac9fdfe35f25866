// Package nodelink renders data flow graphs as Graphviz node-link diagrams.
//
// # DOT Generation
//
// [ToDOT] emits one node per component and one per data memory level.
// Components are filled gray boxes labeled "name\ntype", levels are lighter
// ellipses. Identifiers are namespaced ("nodeComponent…", "nodeLevel…") so a
// level and a component may share a name.
//
//	g := dataflow.Build(doc)
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//
// With OmitLevels set, levels disappear and every writer is connected
// directly to every reader of a level it writes.
//
// # Image Rendering
//
// A [Renderer] turns DOT source into an image:
//
//   - [ExecRenderer] pipes the source through the external "dot" program,
//     so any format Graphviz supports is available. Runs are bounded by a
//     timeout and honor context cancellation.
//   - [EmbeddedRenderer] lays out the graph in-process using
//     [github.com/goccy/go-graphviz] and produces svg, png or jpg.
//
//	r, err := nodelink.NewRenderer(nodelink.EngineExec, "", 0)
//	png, err := r.Render(ctx, dot, "png")
package nodelink
