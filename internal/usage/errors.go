package usage

import "fmt"

// ConsistencyError reports an internal invariant violation: two AST nodes
// sharing an id disagreed on their computed location handle. This is a
// programming error in the producer's AST dump (or in this analyzer), not a
// recoverable condition — Analyzer.record panics with this type rather than
// returning it.
type ConsistencyError struct {
	ID       string
	Table    string
	Existing uint32
	Got      uint32
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation in %s for id %s: existing handle %d, got %d", e.Table, e.ID, e.Existing, e.Got)
}

// StringTooLongError reports that an inherited file or line value exceeded
// the fixed-capacity buffer it is copied into.
type StringTooLongError struct {
	Field string
	Value string
	Limit int
}

func (e *StringTooLongError) Error() string {
	return fmt.Sprintf("%s %q exceeds %d-byte limit", e.Field, e.Value, e.Limit)
}
