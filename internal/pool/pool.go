// Package pool provides a content-addressed string interner.
//
// Locations are compared and set-tested far more often than they are
// inspected, and the same location string recurs across sibling
// declarations in an AST dump. Interning collapses this to dense,
// cheap integer equality instead of repeated byte comparisons.
package pool

import (
	"github.com/cespare/xxhash/v2"
)

// Handle identifies an interned byte string. Handles are dense and issued
// in insertion order starting at 0.
type Handle uint32

// Pool interns variable-length byte strings to small integer handles with
// O(1) insertion-or-lookup and content-addressed deduplication.
//
// Not safe for concurrent use; callers that shard analysis across
// translation units give each worker its own Pool.
type Pool struct {
	buckets map[uint64][]Handle
	entries [][]byte
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{
		buckets: make(map[uint64][]Handle),
	}
}

// Put interns b, returning its handle. If b was already interned, the
// existing handle is returned and no allocation of a new entry occurs.
// The returned handle is stable for the lifetime of the pool.
func (p *Pool) Put(b []byte) Handle {
	h := xxhash.Sum64(b)
	for _, candidate := range p.buckets[h] {
		if string(p.entries[candidate]) == string(b) {
			return candidate
		}
	}

	handle := Handle(len(p.entries))
	stored := make([]byte, len(b))
	copy(stored, b)
	p.entries = append(p.entries, stored)
	p.buckets[h] = append(p.buckets[h], handle)
	return handle
}

// PutString is a convenience wrapper around Put for string content.
func (p *Pool) PutString(s string) Handle {
	return p.Put([]byte(s))
}

// Get returns the content stored under handle. The returned slice must not
// be mutated by the caller.
func (p *Pool) Get(h Handle) []byte {
	return p.entries[h]
}

// String returns the content stored under handle as a string.
func (p *Pool) String(h Handle) string {
	return string(p.entries[h])
}

// Len returns the number of distinct entries interned so far.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Iter calls fn once for every distinct handle in the pool, in unspecified
// order.
func (p *Pool) Iter(fn func(Handle)) {
	for i := range p.entries {
		fn(Handle(i))
	}
}
