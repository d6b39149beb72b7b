package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/explode/pkg/assembly"
	"github.com/matzehuels/explode/pkg/errors"
)

// Write encodes t in the given format. Parts are written in pre-order, so
// parents precede their children, and relations include the pairs added by
// container propagation. The output can be read back with [Read].
func Write(t *assembly.Tree, w io.Writer, format Format) error {
	doc := fromTree(t)
	switch format {
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	default:
		return errors.New(errors.ErrCodeUnsupported, "unsupported assembly format %q", format)
	}
	return nil
}

// Save writes t to path, choosing the format from the extension.
func Save(t *assembly.Tree, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(t, f, format)
}

// Canonical returns the compact JSON encoding of t's static data. Two trees
// with the same parts, limits, handles and relations yield the same bytes;
// runtime state is excluded.
func Canonical(t *assembly.Tree) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(fromTree(t)); err != nil {
		return nil, fmt.Errorf("encode canonical: %w", err)
	}
	return buf.Bytes(), nil
}

func fromTree(t *assembly.Tree) document {
	doc := document{Parts: make([]record, 0, t.Len())}
	names := func(idx []int) []string {
		if len(idx) == 0 {
			return nil
		}
		out := make([]string, len(idx))
		for i, j := range idx {
			out[i] = t.Part(j).Name
		}
		return out
	}
	t.ForEach(func(p *assembly.Part) {
		rec := record{
			Name:      p.Name,
			Min:       p.Min,
			Max:       p.Max,
			Blocks:    names(p.Blocks()),
			Attracts:  names(p.Attracts()),
			Followers: names(p.Followers()),
		}
		if parent, ok := t.Parent(p); ok {
			rec.Parent = parent.Name
		}
		if !p.Direction.IsZero() {
			rec.Direction = []float64{p.Direction.X, p.Direction.Y, p.Direction.Z}
		}
		for _, h := range p.Handles {
			rec.Handles = append(rec.Handles, string(h))
		}
		doc.Parts = append(doc.Parts, rec)
	})
	return doc
}
