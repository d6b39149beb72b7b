package loader

import (
	"bytes"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/explode/pkg/assembly"
	"github.com/matzehuels/explode/pkg/errors"
)

// Options configures decoding.
type Options struct {
	// Logger receives one Warn line per skipped relation. Defaults to
	// log.Default().
	Logger *log.Logger
}

// Warning describes a relation that was skipped because it names an unknown
// part.
type Warning struct {
	Part     string // part declaring the relation
	Relation string // "blocks", "attracts" or "followers"
	Ref      string // the unknown name
}

func (w Warning) String() string {
	return fmt.Sprintf("%s.%s: unknown part %q", w.Part, w.Relation, w.Ref)
}

// Result is a linked, validated tree plus the non-fatal problems found while
// linking it.
type Result struct {
	Tree       *assembly.Tree
	Warnings   []Warning
	Propagated int // blocking pairs added by container propagation
}

// Load reads the assembly file at path, choosing the format from its
// extension.
func Load(path string, opts Options) (*Result, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if goerrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	res, err := Read(f, format, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Read decodes an assembly in the given format from r and links it into a
// tree. Read does not close r.
//
// Read returns an error if:
//   - The input is malformed (INVALID_FORMAT)
//   - A part name is empty, malformed or duplicated (INVALID_INPUT, DUPLICATE_PART)
//   - A parent is unknown or a value is out of range (INVALID_ASSEMBLY)
//   - The blocking or following relation contains a cycle (CYCLE_DETECTED)
func Read(r io.Reader, format Format, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	doc, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	return link(doc, opts.Logger)
}

func decode(data []byte, format Format) (document, error) {
	var doc document
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&doc); goerrors.Is(err, io.EOF) {
			err = nil
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	default:
		return doc, errors.New(errors.ErrCodeUnsupported, "unsupported assembly format %q", format)
	}
	if err != nil {
		return doc, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", format)
	}
	return doc, nil
}

func link(doc document, logger *log.Logger) (*Result, error) {
	seen := make(map[string]bool, len(doc.Parts))
	for i, rec := range doc.Parts {
		if err := errors.ValidatePartName(rec.Name); err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
		if seen[rec.Name] {
			return nil, errors.New(errors.ErrCodeDuplicatePart, "duplicate part %q", rec.Name)
		}
		seen[rec.Name] = true
		if err := checkRecord(rec); err != nil {
			return nil, err
		}
	}

	tree := assembly.New()
	if err := addInParentOrder(tree, doc.Parts, seen); err != nil {
		return nil, err
	}

	res := &Result{Tree: tree}
	for _, rec := range doc.Parts {
		relations := []struct {
			name string
			refs []string
			set  func(from, to string) error
		}{
			{"blocks", rec.Blocks, tree.SetBlock},
			{"attracts", rec.Attracts, tree.SetAttract},
			{"followers", rec.Followers, tree.SetFollower},
		}
		for _, rel := range relations {
			for _, ref := range rel.refs {
				if !seen[ref] {
					w := Warning{Part: rec.Name, Relation: rel.name, Ref: ref}
					logger.Warn("skipping relation to unknown part", "part", w.Part, "relation", w.Relation, "ref", w.Ref)
					res.Warnings = append(res.Warnings, w)
					continue
				}
				if err := rel.set(rec.Name, ref); err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidAssembly, err, "%s.%s", rec.Name, rel.name)
				}
			}
		}
	}

	res.Propagated = tree.PropagateAllBlocks()
	if err := tree.Validate(); err != nil {
		code := errors.ErrCodeInvalidAssembly
		if goerrors.Is(err, assembly.ErrBlockingCycle) || goerrors.Is(err, assembly.ErrFollowerCycle) {
			code = errors.ErrCodeCycleDetected
		}
		return nil, errors.Wrap(code, err, "validate")
	}
	return res, nil
}

func checkRecord(rec record) error {
	if n := len(rec.Direction); n != 0 && n != 3 {
		return errors.New(errors.ErrCodeInvalidAssembly, "%s: direction needs 3 components, got %d", rec.Name, n)
	}
	for _, v := range append([]float64{rec.Min, rec.Max}, rec.Direction...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New(errors.ErrCodeInvalidAssembly, "%s: non-finite value", rec.Name)
		}
	}
	if rec.Min < 0 || rec.Max < 0 {
		return errors.New(errors.ErrCodeInvalidAssembly, "%s: min and max must be non-negative", rec.Name)
	}
	if rec.Parent == rec.Name {
		return errors.New(errors.ErrCodeInvalidAssembly, "%s: part cannot be its own parent", rec.Name)
	}
	return nil
}

// addInParentOrder inserts records so that every parent precedes its
// children while otherwise keeping file order.
func addInParentOrder(tree *assembly.Tree, recs []record, known map[string]bool) error {
	for _, rec := range recs {
		if rec.Parent != "" && !known[rec.Parent] {
			return errors.New(errors.ErrCodeInvalidAssembly, "%s: unknown parent %q", rec.Name, rec.Parent)
		}
	}

	added := make([]bool, len(recs))
	remaining := len(recs)
	for remaining > 0 {
		progress := false
		for i, rec := range recs {
			if added[i] {
				continue
			}
			if rec.Parent != "" {
				if _, ok := tree.Lookup(rec.Parent); !ok {
					continue
				}
			}
			if err := tree.AddPart(toPart(rec), rec.Parent); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidAssembly, err, "%s", rec.Name)
			}
			added[i] = true
			remaining--
			progress = true
		}
		if !progress {
			for i, rec := range recs {
				if !added[i] {
					return errors.New(errors.ErrCodeCycleDetected, "%s: parent chain loops back to itself", rec.Name)
				}
			}
		}
	}
	return nil
}

func toPart(rec record) assembly.Part {
	p := assembly.Part{Name: rec.Name, Min: rec.Min, Max: rec.Max}
	if len(rec.Direction) == 3 {
		p.Direction = assembly.Vec3{X: rec.Direction[0], Y: rec.Direction[1], Z: rec.Direction[2]}
	}
	for _, h := range rec.Handles {
		p.Handles = append(p.Handles, assembly.Handle(h))
	}
	return p
}
