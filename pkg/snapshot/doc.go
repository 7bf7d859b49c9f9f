/*
Package snapshot implements the bulk dump/restore layout of §6: a
directory holding init_snapshot.bin (the fragment catalog), one keys
column file (<label>.keys.col) per vertex label, one <label>.<prop>.col
file per property column, and one <src>_<dst>_<edge>.{out,in}.adj file
per adjacency triplet per direction. The catalog and the adjacency
files start with the 4-byte magic / 4-byte version framing
fragment.Serialize uses, and a mismatch there on restore is reported as
types.CodeIncompatibleSnapshot. The keys and property column files carry
no magic or version header, so they are not checked for one on restore.

Dump needs only the fragment: vertex tables and adjacency tables carry
their own names, which it uses for filenames. Restore also takes the
originating schema.Schema, from which it rebuilds the fragment layout.
*/
package snapshot
