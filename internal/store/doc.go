// Package store persists submissions in SQLite and enforces the
// lifecycle state machine:
//
//	submitted -> defense_started -> defense_complete -> {excluded, graded} -> reviewed
//
// with a manual excluded <-> defense_complete toggle. Forward
// transitions are expressed as conditional UPDATEs so concurrent
// writers against the same session serialize and duplicates become
// detected no-ops.
package store
