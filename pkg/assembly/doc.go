// Package assembly provides the part hierarchy and constraint graph used to
// animate exploded views of mechanical assemblies.
//
// # Overview
//
// An assembly is a forest of [Part] values. Each part owns a set of visual
// handles and may move along its own explode direction. Parts whose direction
// is the zero vector are containers: they exist purely for grouping and never
// move on their own.
//
// On top of the ownership hierarchy the package maintains three cross-part
// relations:
//
//   - blocking: a blocked part may not start moving until every blocker has
//     cleared its Min offset ([Tree.SetBlock])
//   - attraction: a passenger whose visual handles ride along with a master
//     part without any progress of its own ([Tree.SetAttract])
//   - following: a follower moves along its master's direction whenever the
//     master moves ([Tree.SetFollower])
//
// # Basic Usage
//
// Create a tree with [New], add parts with [Tree.AddPart], link relations,
// then propagate container constraints and validate:
//
//	t := assembly.New()
//	_ = t.AddPart(assembly.Part{Name: "case", Direction: assembly.Vec3{}}, "")
//	_ = t.AddPart(assembly.Part{Name: "lid", Direction: assembly.Vec3{Z: 1}, Min: 1, Max: 3}, "case")
//	_ = t.AddPart(assembly.Part{Name: "board", Direction: assembly.Vec3{Z: 1}, Min: 1, Max: 2}, "case")
//	_ = t.SetBlock("lid", "board")
//	t.PropagateAllBlocks()
//	if err := t.Validate(); err != nil {
//		// cyclic blocking or following
//	}
//
// # Storage
//
// Parts live in a flat arena indexed by position; every relation stores
// arena indices instead of pointers, and a name index makes lookups O(1).
// Topology is expected to stay frozen once scheduling begins; only the
// runtime fields (Offset, Weight, the state flags) change afterwards.
//
// # Concurrency
//
// Tree instances are not safe for concurrent use. The scheduler mutates the
// runtime fields from a single goroutine; callers sharing a tree across
// goroutines must synchronize externally.
package assembly
