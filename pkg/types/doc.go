/*
Package types defines the identifiers, enums, and error taxonomy shared
across FlexGraph's storage engine.

This package has no dependencies on any other FlexGraph package — every
other package imports it, never the reverse.

# Core Types

Identifiers:
  - VLabel, ELabel: 8-bit label ids for vertices and edges.
  - VID: dense 32-bit vertex id, local to one vertex label.
  - Triplet: (src label, dst label, edge label), the key of one adjacency
    structure.
  - OID: a tagged external primary-key value (signed/unsigned 32/64-bit
    integer, or short string).
  - Timestamp: the 32-bit commit version issued by the version manager.

Enums:
  - PropertyType: the column value kinds a schema may declare — scalars,
    fixed-precision temporals, and the two string representations.
  - StorageStrategy: Memory or Mapped, the declared residency of one
    property column.
  - AdjacencyStrategy: None, Single, or Multiple, the declared shape of
    one direction of one triplet's adjacency.
  - ProcedureKind: the five procedure type tags from §4.9.

Errors:
  - Code: the closed taxonomy from §7 (NotFound, DuplicateKey,
    SchemaConflict, IncompatibleSnapshot, DurabilityError, InvalidInput,
    QueryFailed, Timeout).
  - Error: a Code plus the failing operation and optional cause,
    compatible with errors.Is/errors.As.

# Usage

	if _, err := idx.Insert(oid); err != nil {
	    if errors.Is(err, types.ErrDuplicateKey) {
	        // handle duplicate primary key
	    }
	}
*/
package types
