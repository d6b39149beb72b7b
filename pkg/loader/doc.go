// Package loader reads and writes assembly files.
//
// # Overview
//
// An assembly file lists every part of a hierarchy together with its explode
// direction, offset limits, visual handles and relations. The same schema is
// accepted in TOML, YAML and JSON; the format is chosen from the file
// extension by [Load] or passed explicitly to [Read].
//
// # TOML
//
//	[[part]]
//	name = "housing"
//	handles = ["housing.mesh"]
//	blocks = ["lid"]
//
//	[[part]]
//	name = "lid"
//	parent = "housing"
//	direction = [0, 0, 1]
//	min = 1.5
//	max = 3.0
//	handles = ["lid.mesh"]
//	attracts = ["screw"]
//
// # YAML and JSON
//
// YAML uses a top-level "parts" list and JSON an object with a "parts"
// array; field names are identical to TOML.
//
// # Fields
//
// Required:
//   - name: unique part name
//
// Optional:
//   - parent: name of the enclosing part (root when omitted)
//   - direction: three numbers; omitted or all zero marks a container
//   - min, max: non-negative offsets (default 0)
//   - handles: visual elements moved with the part
//   - blocks: parts that may not move until this one clears its min
//   - attracts: passengers carried by this part
//   - followers: parts translated along this part's direction
//
// # Linking
//
// Parts may appear in any order. Duplicate names and unknown parents are
// fatal. A relation naming an unknown part is skipped and reported as a
// [Warning]. After linking, container blockers are propagated to their
// children and the tree is validated, so blocking or following cycles are
// rejected at load time.
package loader
