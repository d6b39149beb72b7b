package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/explode/pkg/assembly"
	"github.com/matzehuels/explode/pkg/errors"
	"github.com/matzehuels/explode/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds direction, min/max and current offset to node labels.
	// When false, only the part name is shown.
	Detailed bool

	// HideHierarchy omits parent -> child edges, leaving only constraints.
	HideHierarchy bool
}

// Edge styles per relation.
const (
	styleHierarchy = `color=grey70, arrowhead=none`
	styleBlocks    = `color=firebrick, penwidth=2`
	styleAttracts  = `color=steelblue, style=dashed`
	styleFollowers = `color=forestgreen, style=dotted`
)

// ToDOT converts the parts and relations of t to Graphviz DOT format.
// Parts appear in pre-order so the output is stable for a given tree.
func ToDOT(t *assembly.Tree, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	t.ForEach(func(p *assembly.Part) {
		attrs := fmtAttrs(p, fmtLabel(p, opts.Detailed))
		fmt.Fprintf(&buf, "  %q [%s];\n", p.Name, strings.Join(attrs, ", "))
	})

	buf.WriteString("\n")
	t.ForEach(func(p *assembly.Part) {
		if !opts.HideHierarchy {
			writeEdges(&buf, t, p, p.ChildIndices(), styleHierarchy)
		}
		writeEdges(&buf, t, p, p.Blocks(), styleBlocks)
		writeEdges(&buf, t, p, p.Attracts(), styleAttracts)
		writeEdges(&buf, t, p, p.Followers(), styleFollowers)
	})

	buf.WriteString("}\n")
	return buf.String()
}

func writeEdges(buf *bytes.Buffer, t *assembly.Tree, from *assembly.Part, to []int, style string) {
	for _, i := range to {
		fmt.Fprintf(buf, "  %q -> %q [%s];\n", from.Name, t.Part(i).Name, style)
	}
}

func fmtLabel(p *assembly.Part, detailed bool) string {
	if !detailed {
		return p.Name
	}
	if p.IsContainer() {
		return p.Name + "\ncontainer"
	}
	lines := []string{
		fmt.Sprintf("dir: %s", p.Direction),
		fmt.Sprintf("min: %g  max: %g", p.Min, p.Max),
	}
	if p.Offset != 0 {
		lines = append(lines, fmt.Sprintf("offset: %g", p.Offset))
	}
	return p.Name + "\n" + strings.Join(lines, "\n")
}

func fmtAttrs(p *assembly.Part, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if p.IsContainer() {
		attrs = append(attrs, "fillcolor=lightgrey")
	}
	if p.Offset != 0 {
		attrs = append(attrs, "style=\"rounded,filled,bold\"")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with
// [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root svg tag so the drawing starts at the
// origin and carries explicit pixel dimensions.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion. A scale of 2.0
// produces a 2x resolution image.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
