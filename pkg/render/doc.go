// Package render turns assemblies into pictures.
//
// The [nodelink] subpackage draws the constraint graph of an assembly with
// Graphviz. This package holds the format conversion shared by renderers:
// [ToPDF] and [ToPNG] convert SVG output with the external rsvg-convert tool
// (from librsvg).
//
//	dot := nodelink.ToDOT(tree, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//
// [nodelink]: github.com/matzehuels/explode/pkg/render/nodelink
package render
