package loader

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/explode/pkg/assembly"
	"github.com/matzehuels/explode/pkg/errors"
)

var quiet = Options{Logger: log.New(io.Discard)}

func names(t *assembly.Tree, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = t.Part(j).Name
	}
	return out
}

func TestLoadGearbox(t *testing.T) {
	for _, file := range []string{"gearbox.toml", "gearbox.yaml", "gearbox.json"} {
		t.Run(file, func(t *testing.T) {
			res, err := Load(filepath.Join("testdata", file), quiet)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tr := res.Tree
			if tr.Len() != 6 {
				t.Fatalf("Len = %d, want 6", tr.Len())
			}
			if len(res.Warnings) != 0 {
				t.Errorf("unexpected warnings: %v", res.Warnings)
			}

			cover, _ := tr.Lookup("cover")
			if diff := cmp.Diff(assembly.Vec3{Z: 1}, cover.Direction); diff != "" {
				t.Errorf("cover direction (-want +got):\n%s", diff)
			}
			if cover.Min != 1 || cover.Max != 3 {
				t.Errorf("cover limits = %v/%v, want 1/3", cover.Min, cover.Max)
			}
			if diff := cmp.Diff([]string{"gears", "gear-a", "shaft"}, names(tr, cover.Blocks())); diff != "" {
				t.Errorf("cover.blocks after propagation (-want +got):\n%s", diff)
			}
			if res.Propagated != 2 {
				t.Errorf("Propagated = %d, want 2", res.Propagated)
			}

			bolt, _ := tr.Lookup("bolt")
			if !cover.HasPassenger(bolt) {
				t.Error("bolt should ride with cover")
			}
			shaft, _ := tr.Lookup("shaft")
			gear, _ := tr.Lookup("gear-a")
			if shaft.Master() != gear.Index() {
				t.Error("shaft should follow gear-a")
			}
			gears, _ := tr.Lookup("gears")
			if !gears.IsContainer() {
				t.Error("gears has no direction and should be a container")
			}
		})
	}
}

func TestReadChildBeforeParent(t *testing.T) {
	src := `
[[part]]
name = "child"
parent = "root"
direction = [1, 0, 0]

[[part]]
name = "root"
`
	res, err := Read(strings.NewReader(src), FormatTOML, quiet)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var order []string
	res.Tree.ForEach(func(p *assembly.Part) { order = append(order, p.Name) })
	if diff := cmp.Diff([]string{"root", "child"}, order); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestReadWarnsOnUnknownRelations(t *testing.T) {
	src := `parts:
  - name: a
    direction: [1, 0, 0]
    blocks: [ghost]
    followers: [phantom]
`
	var logs bytes.Buffer
	res, err := Read(strings.NewReader(src), FormatYAML, Options{Logger: log.New(&logs)})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []Warning{
		{Part: "a", Relation: "blocks", Ref: "ghost"},
		{Part: "a", Relation: "followers", Ref: "phantom"},
	}
	if diff := cmp.Diff(want, res.Warnings); diff != "" {
		t.Errorf("warnings (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), "ghost") {
		t.Errorf("warning not logged: %q", logs.String())
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		src    string
		code   errors.Code
	}{
		{"malformed json", FormatJSON, `{"parts": [`, errors.ErrCodeInvalidFormat},
		{"unknown json field", FormatJSON, `{"parts": [{"name": "a", "speed": 3}]}`, errors.ErrCodeInvalidFormat},
		{"unknown yaml field", FormatYAML, "parts:\n  - name: a\n    colour: red\n", errors.ErrCodeInvalidFormat},
		{"duplicate", FormatJSON, `{"parts": [{"name": "a"}, {"name": "a"}]}`, errors.ErrCodeDuplicatePart},
		{"empty name", FormatJSON, `{"parts": [{"name": ""}]}`, errors.ErrCodeInvalidInput},
		{"missing parent", FormatJSON, `{"parts": [{"name": "a", "parent": "nope"}]}`, errors.ErrCodeInvalidAssembly},
		{"short direction", FormatJSON, `{"parts": [{"name": "a", "direction": [1, 0]}]}`, errors.ErrCodeInvalidAssembly},
		{"negative max", FormatJSON, `{"parts": [{"name": "a", "max": -1}]}`, errors.ErrCodeInvalidAssembly},
		{"self block", FormatJSON, `{"parts": [{"name": "a", "blocks": ["a"]}]}`, errors.ErrCodeInvalidAssembly},
		{"parent loop", FormatJSON, `{"parts": [{"name": "a", "parent": "b"}, {"name": "b", "parent": "a"}]}`, errors.ErrCodeCycleDetected},
		{"blocking cycle", FormatJSON,
			`{"parts": [{"name": "a", "direction": [1,0,0], "blocks": ["b"]}, {"name": "b", "direction": [0,1,0], "blocks": ["a"]}]}`,
			errors.ErrCodeCycleDetected},
		{"unsupported format", Format("xml"), `<parts/>`, errors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.src), tt.format, quiet)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.toml"), quiet)
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
	if _, err := Load("assembly.xml", quiet); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("err = %v, want UNSUPPORTED", err)
	}
}

func TestWriteReadsBack(t *testing.T) {
	res, err := Load(filepath.Join("testdata", "gearbox.toml"), quiet)
	if err != nil {
		t.Fatal(err)
	}
	want, err := Canonical(res.Tree)
	if err != nil {
		t.Fatal(err)
	}

	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(res.Tree, &buf, format); err != nil {
				t.Fatalf("Write: %v", err)
			}
			again, err := Read(&buf, format, quiet)
			if err != nil {
				t.Fatalf("Read: %v\n%s", err, buf.String())
			}
			if again.Propagated != 0 {
				t.Errorf("Propagated = %d, want 0 for already propagated input", again.Propagated)
			}
			got, _ := Canonical(again.Tree)
			if diff := cmp.Diff(string(want), string(got)); diff != "" {
				t.Errorf("canonical form changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.toml", FormatTOML},
		{"dir/a.YAML", FormatYAML},
		{"a.yml", FormatYAML},
		{"a.json", FormatJSON},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if err != nil || got != tt.want {
			t.Errorf("FormatFromPath(%q) = %q, %v; want %q", tt.path, got, err, tt.want)
		}
	}
}
