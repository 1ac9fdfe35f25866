// Package dataflow derives the data memory graph of a parsed configuration.
//
// Components exchange data through named data memory levels. A component
// writes a level when one of its properties ending in ".dmLevel" has
// "writer" in its name, and reads it when the name has "reader". [Build]
// collects these relationships into a [Graph]:
//
//	doc, _ := smileconf.Parse("mfcc.conf", nil)
//	g := dataflow.Build(doc)
//	for _, e := range g.Writes {
//	    fmt.Printf("%s -> %s\n", e.Component, e.Level)
//	}
//
// Matching on "reader" and "writer" is case-insensitive and independent, so
// a property whose name contains both produces a read and a write. A
// ".dmLevel" property containing neither is reported as a warning.
//
// Sections of the component manager type ([ManagerType]) describe the
// pipeline itself and never appear in the graph.
package dataflow
