package document

import "fmt"

// StructureError reports a malformed root document: a missing required array,
// an unparseable body, or an unsupported version. Structure errors are fatal —
// initialization aborts.
type StructureError struct {
	Reason string
}

func (e StructureError) Error() string {
	return fmt.Sprintf("malformed document: %s", e.Reason)
}

// ReferenceError reports an out-of-range index into one of the document
// arrays. Callers skip the offending node, primitive, or texture; a reference
// error is never fatal on its own.
type ReferenceError struct {
	Kind  string // referenced array, e.g. "node", "mesh", "accessor"
	Index int
	Count int // length of the referenced array
}

func (e ReferenceError) Error() string {
	return fmt.Sprintf("%s index %d out of range (have %d)", e.Kind, e.Index, e.Count)
}

// ErrReference constructs a ReferenceError for an index into an array of the
// given length.
//
// Parameters:
//   - kind: the referenced array name
//   - index: the offending index
//   - count: the array length
//
// Returns:
//   - error: the ReferenceError
func ErrReference(kind string, index, count int) error {
	return ReferenceError{Kind: kind, Index: index, Count: count}
}
