// Package io exports parsed configurations and their data flow graphs as JSON.
//
// # JSON Format
//
//	{
//	  "path": "/abs/smile.conf",
//	  "files": ["/abs/smile.conf", "/abs/shared/source.conf.inc"],
//	  "sections": [
//	    {"name": "framer", "type": "cFramer", "properties": [
//	      {"name": "reader.dmLevel", "value": "wave"},
//	      {"name": "frameSize", "value": "0.025"}
//	    ]}
//	  ],
//	  "options": [{"long": "inputfile", "short": "I", "default": "in.wav"}],
//	  "graph": {
//	    "components": [{"name": "framer", "type": "cFramer"}],
//	    "levels": ["wave", "frames"],
//	    "writes": [{"component": "framer", "level": "frames"}],
//	    "reads": [{"component": "framer", "level": "wave"}]
//	  }
//	}
//
// Array-valued properties ("a;b;c") are encoded as JSON arrays, scalars as
// strings. Sections, properties and graph lists keep document order.
// "diagnostics" and "graph.warnings" are omitted when empty.
package io
