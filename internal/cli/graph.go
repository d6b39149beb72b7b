package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/explode/pkg/assembly"
	"github.com/matzehuels/explode/pkg/cache"
	"github.com/matzehuels/explode/pkg/errors"
	"github.com/matzehuels/explode/pkg/observability"
	"github.com/matzehuels/explode/pkg/playback"
	"github.com/matzehuels/explode/pkg/render/nodelink"
)

// Graph output formats.
const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPDF = "pdf"
	formatPNG = "png"
)

// graphCommand creates the graph command, which draws the constraint graph.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		output        string
		detailed      bool
		hideHierarchy bool
		noCache       bool
	)

	cmd := &cobra.Command{
		Use:   "graph [assembly-file]",
		Short: "Draw the constraint graph of an assembly",
		Long: `Draw parts and their relations with Graphviz.

Red edges are blocking constraints, dashed blue edges attraction (passengers),
dotted green edges followers and thin grey edges the part hierarchy. The
output format follows the -o extension: .dot, .svg, .pdf or .png (PDF and PNG
need rsvg-convert). Without -o the DOT source is printed.`,
		Example: `  explode graph gearbox.toml
  explode graph gearbox.toml -o gearbox.svg --detailed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := c.loadAssembly(args[0])
			if err != nil {
				return err
			}
			opts := nodelink.Options{Detailed: detailed, HideHierarchy: hideHierarchy}
			dot := nodelink.ToDOT(res.Tree, opts)

			if output == "" {
				fmt.Print(dot)
				return nil
			}
			format := strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")

			tc, err := c.newCache(ctx, noCache)
			if err != nil {
				return err
			}
			defer tc.Close()

			data, cached, err := renderGraph(ctx, tc, res.Tree, dot, format, opts)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			status := iconFresh
			if cached {
				status = iconCached
			}
			printSuccess("Rendered %s %s", filepath.Base(args[0]), StyleDim.Render("("+status+")"))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.dot, .svg, .pdf, .png)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show direction and limits in node labels")
	cmd.Flags().BoolVar(&hideHierarchy, "no-hierarchy", false, "omit parent -> child edges")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the render cache")

	return cmd
}

// renderGraph renders dot in format, going through the cache for the
// Graphviz based formats.
func renderGraph(ctx context.Context, tc cache.Cache, tree *assembly.Tree, dot, format string, opts nodelink.Options) ([]byte, bool, error) {
	if format == formatDOT {
		return []byte(dot), false, nil
	}
	switch format {
	case formatSVG, formatPDF, formatPNG:
	default:
		return nil, false, errors.New(errors.ErrCodeUnsupported, "unsupported graph format %q (want dot, svg, pdf or png)", format)
	}

	hash, err := playback.StateHash(tree)
	if err != nil {
		return nil, false, err
	}
	keyOpts := cache.GraphKeyOpts{Format: format, Detailed: opts.Detailed}
	if opts.HideHierarchy {
		keyOpts.Format += "+nohierarchy"
	}
	key := cache.NewDefaultKeyer().GraphKey(hash, keyOpts)

	hooks := observability.Cache()
	if data, hit, err := tc.Get(ctx, key); err == nil && hit {
		hooks.OnCacheHit(ctx, "graph")
		return data, true, nil
	}
	hooks.OnCacheMiss(ctx, "graph")

	var data []byte
	switch format {
	case formatSVG:
		data, err = nodelink.RenderSVG(ctx, dot)
	case formatPDF:
		data, err = nodelink.RenderPDF(ctx, dot)
	case formatPNG:
		data, err = nodelink.RenderPNG(ctx, dot, 2)
	}
	if err != nil {
		return nil, false, err
	}
	if err := tc.Set(ctx, key, data, cache.TTLGraph); err == nil {
		hooks.OnCacheSet(ctx, "graph", len(data))
	}
	return data, false, nil
}
