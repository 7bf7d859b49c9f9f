/*
Package schema implements the declarative, immutable-after-init schema
of §4.1: vertex labels, edge-label triplets, storage strategies, and
the registered-procedure directory.

A Schema is built programmatically with AddVertexLabel/AddEdgeLabel/
RegisterProcedure, or loaded wholesale from YAML (schema.LoadYAML)
in the shape GraphScope's FLEX engine uses for its graph schema
files — a convenience for tests and for the bulk-loader collaborator
to hand this engine a schema without hand-writing Go calls. Once
built, Resolve turns a Schema into the fragment.Config the storage
engine actually runs against.
*/
package schema
