// Package usage implements the usage analyzer: it consumes scanner node
// records, reconciles inherited location fields, interns locations against
// a project scope, links declarations to their definitions, and aggregates
// a used/unused verdict per declaration.
package usage

import (
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/deadvisor-dev/deadvisor/internal/astscan"
	"github.com/deadvisor-dev/deadvisor/internal/pool"
	"github.com/deadvisor-dev/deadvisor/internal/scope"
)

const (
	maxFileLen = 4096
	maxLineLen = 16
)

// declKinds is the set of node kinds the analyzer cares about. Destructors
// are deliberately excluded: reporting unused destructors is not useful,
// since they are called implicitly by the compiler at scope exit regardless
// of whether the author ever names them.
var declKinds = map[string]bool{
	"FunctionDecl":       true,
	"CXXMethodDecl":      true,
	"CXXConstructorDecl": true,
	"CXXConversionDecl":  true,
}

// Analyzer holds all mutable state for one translation unit's worth of AST
// nodes. It is strictly single-threaded: a caller feeds it nodes in
// scanner-emission (pre-order) order via OnNode, synchronously.
type Analyzer struct {
	resolver *scope.Resolver
	pool     *pool.Pool
	usedLocs *roaring.Bitmap

	idToLoc          map[uint64]pool.Handle
	idToSecondaryLoc map[uint64]pool.Handle

	currentFile string
	currentLine string
}

// New creates an Analyzer that resolves file paths through resolver.
func New(resolver *scope.Resolver) *Analyzer {
	return &Analyzer{
		resolver:         resolver,
		pool:             pool.New(),
		usedLocs:         roaring.New(),
		idToLoc:          make(map[uint64]pool.Handle),
		idToSecondaryLoc: make(map[uint64]pool.Handle),
	}
}

// Pool exposes the interned location strings for the result iterator.
func (a *Analyzer) Pool() *pool.Pool {
	return a.pool
}

// UsedLocs exposes the used-location bitmap for the result iterator.
func (a *Analyzer) UsedLocs() *roaring.Bitmap {
	return a.usedLocs
}

// OnNode implements astscan.NodeFunc: the entry point executed for every
// flushed node in pre-order.
func (a *Analyzer) OnNode(node *astscan.AstNode) error {
	if err := a.inheritLocation(node); err != nil {
		return err
	}

	if !a.inScope(node) {
		return nil
	}

	locHandle, secondaryHandle, ok, err := a.computeLocationHandle(node)
	if err != nil {
		return err
	}
	if !ok {
		// Dangling previousDecl reference; silently dropped per the
		// documented quirk of the producer.
		return nil
	}

	id, idOK := parseNodeID(node.ID)
	if idOK {
		a.record(id, locHandle, secondaryHandle)
	}

	if node.IsUsed || node.MangledName == "main" {
		a.usedLocs.Add(uint32(locHandle))
		if secondaryHandle != noHandle {
			a.usedLocs.Add(uint32(secondaryHandle))
		}
	}

	return nil
}

// inheritLocation is step 1: select the effective file/line, pass the file
// through the resolver, and persist both into the current_file/current_line
// cursors so a child node that omits them inherits the parent's location.
func (a *Analyzer) inheritLocation(node *astscan.AstNode) error {
	file := node.Location.PresumedFile
	if file == "" {
		file = node.Location.File
	}
	if file != "" {
		if len(file) > maxFileLen {
			return &StringTooLongError{Field: "file", Value: file, Limit: maxFileLen}
		}
		a.currentFile = a.resolver.Resolve(file)
	}

	if a.currentFile != "" {
		line := node.Location.PresumedLine
		if line == "" {
			line = node.Location.Line
		}
		if line != "" {
			if len(line) > maxLineLen {
				return &StringTooLongError{Field: "line", Value: line, Limit: maxLineLen}
			}
			a.currentLine = line
		}
	}

	return nil
}

// inScope is step 2: the filter. A node is analyzed only if its kind is one
// of the in-scope declaration kinds, it carries a complete location
// (inherited file, inherited line, and its own col), and it is neither
// implicit nor explicitly deleted.
func (a *Analyzer) inScope(node *astscan.AstNode) bool {
	if !declKinds[node.Kind] {
		return false
	}
	if a.currentFile == "" || a.currentLine == "" || node.Location.Col == "" {
		return false
	}
	if node.IsImplicit {
		return false
	}
	if node.IsExplicitlyDeleted {
		return false
	}
	return true
}

const noHandle = pool.Handle(^uint32(0))

// computeLocationHandle is step 3. If previousDecl is set, this node
// defines an earlier prototype and reuses its handle (and propagates its
// secondary handle); otherwise a fresh canonical string is interned.
func (a *Analyzer) computeLocationHandle(node *astscan.AstNode) (loc pool.Handle, secondary pool.Handle, ok bool, err error) {
	secondary = noHandle

	if node.PreviousDecl != "" {
		prevID, prevOK := parseNodeID(node.PreviousDecl)
		if !prevOK {
			return 0, noHandle, false, nil
		}
		existing, found := a.idToLoc[prevID]
		if !found {
			return 0, noHandle, false, nil
		}
		loc = existing
		if prevSecondary, found := a.idToSecondaryLoc[prevID]; found {
			secondary = prevSecondary
		}
		return loc, secondary, true, nil
	}

	loc = a.pool.PutString(locationString(a.currentFile, a.currentLine, node.Location.Col))

	if node.HasSecondaryLocation && node.SecondaryLocation.Col != "" {
		secFile := node.SecondaryLocation.File
		if secFile == "" {
			secFile = a.currentFile
		}
		secLine := node.SecondaryLocation.Line
		if secLine == "" {
			secLine = a.currentLine
		}
		secondary = a.pool.PutString(locationString(secFile, secLine, node.SecondaryLocation.Col))
	}

	return loc, secondary, true, nil
}

func locationString(file, line, col string) string {
	return file + ":" + line + ":" + col
}

// record is step 4: insert (id -> loc) into id_to_loc, asserting that any
// prior mapping for the same id agrees. Likewise for the secondary table.
// A disagreement is a programming error in the producer or this analyzer,
// not a recoverable condition, so it panics rather than returning an error.
func (a *Analyzer) record(id uint64, loc, secondary pool.Handle) {
	if existing, found := a.idToLoc[id]; found {
		if existing != loc {
			panic(&ConsistencyError{
				ID:       strconv.FormatUint(id, 10),
				Table:    "id_to_loc",
				Existing: uint32(existing),
				Got:      uint32(loc),
			})
		}
	} else {
		a.idToLoc[id] = loc
	}

	if secondary != noHandle {
		if existing, found := a.idToSecondaryLoc[id]; found {
			if existing != secondary {
				panic(&ConsistencyError{
					ID:       strconv.FormatUint(id, 10),
					Table:    "id_to_secondary_loc",
					Existing: uint32(existing),
					Got:      uint32(secondary),
				})
			}
		} else {
			a.idToSecondaryLoc[id] = secondary
		}
	}
}

// parseNodeID parses a textual AST node id (decimal or 0x-prefixed hex) into
// a uint64. A node whose id cannot be parsed is treated as idless: it is
// still eligible to be marked used, but can never be the target of a later
// previousDecl back-reference.
func parseNodeID(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
