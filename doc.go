// Package graver is the persistence substrate for application documents:
// a schema-driven serialization engine that writes arbitrary object graphs
// (structs, polymorphic hierarchies, lists, dictionaries, enums, primitives)
// into a compact human-readable text form and reconstructs equivalent graphs
// from it.
//
// Design policy:
//   - All state lives in an explicit Registry; there are no package globals.
//   - Per-field serialization policy (the tactic) comes from an external
//     manifest, see the tactic package; a serializable field missing from the
//     manifest fails descriptor construction rather than silently dropping
//     data.
//   - Keep only public APIs in the root package; byte-level machinery lives
//     under internal/.
//
// Typical usage:
//
//	m, err := tactic.Load("model.tactics")
//	reg := graver.NewRegistry(m)
//	_ = reg.Register(&Wall{}, &Door{})
//
//	data, err := reg.WriteToBytes(doc, graver.WriteOpt{Comment: "drawing v4"})
//	doc2, err := graver.FromBytes[*Drawing](reg, data)
package graver
