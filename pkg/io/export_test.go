package io

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/conf2dot/pkg/dataflow"
	"github.com/matzehuels/conf2dot/pkg/smileconf"
)

const testConf = `[componentInstances:cComponentManager]
instance[src].type = cWaveSource

[src:cWaveSource]
writer.dmLevel = wave
filename = \cm[inputfile(I){in.wav}:input file]

[sink:cCsvSink]
reader.dmLevel = wave;energy
`

func parseTestConf(t *testing.T) (*smileconf.Document, *dataflow.Graph) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smile.conf")
	if err := os.WriteFile(path, []byte(testConf), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := smileconf.Parse(path, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc, dataflow.Build(doc)
}

func TestWriteJSON(t *testing.T) {
	doc, g := parseTestConf(t)

	var buf bytes.Buffer
	if err := WriteJSON(doc, g, &buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got struct {
		Path     string `json:"path"`
		Sections []struct {
			Name       string `json:"name"`
			Properties []struct {
				Name  string          `json:"name"`
				Value json.RawMessage `json:"value"`
			} `json:"properties"`
		} `json:"sections"`
		Options []map[string]string `json:"options"`
		Graph   struct {
			Components []map[string]string `json:"components"`
			Levels     []string            `json:"levels"`
			Reads      []map[string]string `json:"reads"`
			Writes     []map[string]string `json:"writes"`
		} `json:"graph"`
		Diagnostics []string `json:"diagnostics"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}

	if got.Path != doc.Path {
		t.Errorf("path = %q, want %q", got.Path, doc.Path)
	}
	if len(got.Sections) != 3 || got.Sections[2].Name != "sink" {
		t.Fatalf("sections = %+v", got.Sections)
	}
	if v := string(got.Sections[2].Properties[0].Value); v != `["wave","energy"]` {
		t.Errorf("array value encoded as %s", v)
	}
	if v := string(got.Sections[1].Properties[1].Value); v != `"in.wav"` {
		t.Errorf("scalar value encoded as %s", v)
	}
	if len(got.Options) != 1 || got.Options[0]["long"] != "inputfile" || got.Options[0]["short"] != "I" {
		t.Errorf("options = %v", got.Options)
	}
	if len(got.Graph.Components) != 2 || got.Graph.Components[0]["name"] != "src" {
		t.Errorf("components = %v", got.Graph.Components)
	}
	if len(got.Graph.Reads) != 2 || len(got.Graph.Writes) != 1 {
		t.Errorf("reads = %v, writes = %v", got.Graph.Reads, got.Graph.Writes)
	}
	if got.Diagnostics != nil {
		t.Errorf("diagnostics = %v, want omitted", got.Diagnostics)
	}
}

func TestWriteJSONEmptyListsAreArrays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.conf")
	if err := os.WriteFile(path, []byte("; nothing here\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := smileconf.Parse(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteJSON(doc, dataflow.Build(doc), &buf); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"sections": []`, `"options": []`, `"components": []`, `"levels": []`} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("output missing %s:\n%s", want, buf.String())
		}
	}
}

func TestExportJSON(t *testing.T) {
	doc, g := parseTestConf(t)
	path := filepath.Join(t.TempDir(), "out.json")
	if err := ExportJSON(doc, g, path); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(data) {
		t.Errorf("ExportJSON wrote invalid JSON")
	}

	if err := ExportJSON(doc, g, filepath.Join(t.TempDir(), "missing", "out.json")); err == nil {
		t.Error("expected error for missing directory")
	}
}
