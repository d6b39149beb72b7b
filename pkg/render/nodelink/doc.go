// Package nodelink draws the constraint graph of an assembly as a node-link
// diagram.
//
// Every part becomes a box; containers are filled grey. Edges show the four
// relations that drive an explosion:
//
//   - parent -> child (thin grey, hierarchy)
//   - blocker -> blocked (solid red)
//   - master -> passenger (dashed blue, attraction)
//   - master -> follower (dotted green)
//
// [ToDOT] produces Graphviz DOT source that can be saved and processed with
// external tools, or rendered in-process with [RenderSVG]:
//
//	dot := nodelink.ToDOT(tree, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Rendering uses [github.com/goccy/go-graphviz]. PDF and PNG conversion
// requires librsvg (rsvg-convert).
package nodelink
