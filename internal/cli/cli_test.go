package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/explode/pkg/errors"
	"github.com/matzehuels/explode/pkg/loader"
	"github.com/matzehuels/explode/pkg/observability"
	"github.com/matzehuels/explode/pkg/playback"
)

const gearbox = "testdata/gearbox.toml"

// execute runs the root command with isolated config and cache homes.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Cleanup(observability.Reset)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func readTrace(t *testing.T, path string) playback.Trace {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	var trace playback.Trace
	if err := json.Unmarshal(data, &trace); err != nil {
		t.Fatalf("decode trace: %v", err)
	}
	return trace
}

func TestRunCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want map[string]float64
	}{
		{
			name: "explode all",
			want: map[string]float64{"gearbox": 0, "cover": 4, "bolt": 0.5, "gears": 0, "gear-a": 2.5, "shaft": 1},
		},
		{
			name: "half weight",
			args: []string{"-w", "0.5"},
			want: map[string]float64{"gearbox": 0, "cover": 2.5, "bolt": 0.25, "gears": 0, "gear-a": 1.5, "shaft": 0.5},
		},
		{
			name: "explode then implode",
			args: []string{"--implode"},
			want: map[string]float64{"gearbox": 0, "cover": 0, "bolt": 0, "gears": 0, "gear-a": 0, "shaft": 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "trace.json")
			args := append([]string{"run", gearbox, "--no-cache", "--trace", out}, tt.args...)
			if err := execute(t, args...); err != nil {
				t.Fatalf("run: %v", err)
			}
			trace := readTrace(t, out)
			if diff := cmp.Diff(tt.want, trace.Final); diff != "" {
				t.Errorf("final offsets (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"missing file", []string{"run", "testdata/missing.toml", "--no-cache"}, errors.ErrCodeFileNotFound},
		{"weight out of range", []string{"run", gearbox, "--no-cache", "-w", "2"}, errors.ErrCodeInvalidRequest},
		{"bad mode", []string{"run", gearbox, "--no-cache", "--mode", "sideways"}, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := execute(t, tt.args...); !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestValidateCommandWritesAssembly(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gearbox.yaml")
	if err := execute(t, "validate", gearbox, "-o", out); err != nil {
		t.Fatalf("validate: %v", err)
	}
	res, err := loader.Load(out, loader.Options{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if res.Tree.Len() != 6 {
		t.Errorf("reloaded %d parts, want 6", res.Tree.Len())
	}
}

func TestValidateCommandStrict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ghost.yaml")
	src := "parts:\n  - name: a\n    direction: [1, 0, 0]\n    blocks: [ghost]\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, "validate", path); err != nil {
		t.Errorf("lenient validate: %v", err)
	}
	if err := execute(t, "validate", path, "--strict"); !errors.Is(err, errors.ErrCodeInvalidAssembly) {
		t.Errorf("strict validate err = %v, want INVALID_ASSEMBLY", err)
	}
}

func TestGraphCommandDOT(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gearbox.dot")
	if err := execute(t, "graph", gearbox, "-o", out, "--detailed"); err != nil {
		t.Fatalf("graph: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	dot := string(data)
	for _, want := range []string{`"cover" -> "gears"`, `"cover" -> "bolt"`, `"gear-a" -> "shaft"`, "min: 1  max: 3"} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestGraphCommandUnknownFormat(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gearbox.bmp")
	if err := execute(t, "graph", gearbox, "-o", out, "--no-cache"); err == nil {
		t.Error("expected an error for .bmp output")
	}
}

func TestPlayHeadless(t *testing.T) {
	if err := execute(t, "play", gearbox, "--headless", "--speed", "200", "--frame-rate", "500"); err != nil {
		t.Fatalf("play: %v", err)
	}
}

func TestCacheCommands(t *testing.T) {
	if err := execute(t, "cache", "clear"); err != nil {
		t.Errorf("cache clear: %v", err)
	}
	if err := execute(t, "cache", "path"); err != nil {
		t.Errorf("cache path: %v", err)
	}
}

func TestExplicitConfigMissing(t *testing.T) {
	err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.toml"), "cache", "path")
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}
