// Package smileconf parses openSMILE-style pipeline configuration documents.
//
// # Overview
//
// A configuration document declares named, typed components as ini-like
// sections whose properties wire them to shared data memory levels:
//
//	[waveIn:cWaveSource]
//	writer.dmLevel = wave
//	filename = \cm[inputfile(I){input.wav}:file name of the input wave file]
//
//	[framer:cFramer]
//	reader.dmLevel = wave
//	writer.dmLevel = frames
//
// [Parse] reads a document (and every document it includes) into a
// [Document]: an ordered set of [Section] values plus the registry of
// command-line options declared by \cm[...] directives.
//
// # Grammar
//
// Lines are classified in this order:
//
//   - Blank lines and lines starting with ";", "//", "#" or "%" are skipped.
//   - "/*" opens a block comment that runs until a line ending with "*/".
//   - "\{path\}" includes another document in place. Relative paths are
//     resolved against the directory of the including file. A missing file
//     is reported as a diagnostic; an include cycle is an error.
//   - "[name:type]" opens a section, or reopens an existing one.
//   - Anything else is a "name = value" property of the open section.
//
// Property values and include paths may contain one command-line macro,
// \cm[long(short){default}:description]. Only the first directive in a
// string is expanded. After expansion, a value containing ";" becomes an
// array value.
//
// # Encoding
//
// Documents are decoded as ISO-8859-1 so that arbitrary legacy bytes in
// comments or file names never cause a decoding failure.
package smileconf
