// Package pipeline orchestrates one scanner+analyzer pair per translation
// unit across a bounded worker pool, consulting the per-TU cache, and
// unions the per-TU results by location string into a single report. This
// is the "parallelism at the system boundary" spec.md §5 describes: each
// worker owns disjoint scanner/analyzer state, and aggregation is a
// separate, later pass over completed results.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/deadvisor-dev/deadvisor/internal/astscan"
	"github.com/deadvisor-dev/deadvisor/internal/builddb"
	"github.com/deadvisor-dev/deadvisor/internal/cache"
	"github.com/deadvisor-dev/deadvisor/internal/driver"
	"github.com/deadvisor-dev/deadvisor/internal/scope"
	"github.com/deadvisor-dev/deadvisor/internal/usage"
)

// DefaultJobsMultiplier matches the teacher's fileproc worker-count
// heuristic: 2x NumCPU by default.
const DefaultJobsMultiplier = 2

// Options configures one pipeline run.
type Options struct {
	Resolver      *scope.Resolver
	Jobs          int // 0 means DefaultJobsMultiplier * NumCPU
	NoCache       bool
	AstDumpWindow int // 0 means astscan's default window size
}

// Result is one aggregated (location, used) verdict, unioned across every
// translation unit that reported that location.
type Result struct {
	Location string
	Used     bool
}

// TUOutcome reports what happened processing one translation unit, for
// summary/diagnostic purposes.
type TUOutcome struct {
	Invocation builddb.Invocation
	CacheHit   bool
	Results    []usage.Result
	Err        error
}

// Run discovers nothing itself — invocations is the caller-supplied list of
// translation units (from builddb) — and runs one scanner+analyzer pipeline
// per invocation, bounded by Options.Jobs concurrent workers.
func Run(ctx context.Context, invocations []builddb.Invocation, tuCache *cache.TUCache, opts Options) []TUOutcome {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = DefaultJobsMultiplier * runtime.NumCPU()
	}

	outcomes := make([]TUOutcome, len(invocations))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(jobs).WithContext(ctx)
	for i, inv := range invocations {
		idx, invocation := i, inv
		p.Go(func(ctx context.Context) error {
			outcome := processOne(ctx, invocation, tuCache, opts)
			mu.Lock()
			outcomes[idx] = outcome
			mu.Unlock()
			return nil
		})
	}
	_ = p.Wait()

	return outcomes
}

func processOne(ctx context.Context, inv builddb.Invocation, tuCache *cache.TUCache, opts Options) TUOutcome {
	sourcePath := driver.ResolveSourcePath(inv)

	if !opts.NoCache && tuCache != nil {
		if hash, err := cache.InvocationHash(inv, sourcePath); err == nil {
			if records, ok := tuCache.Get(sourcePath, hash); ok {
				return TUOutcome{Invocation: inv, CacheHit: true, Results: recordsToResults(records)}
			}
		}
	}

	source, err := driver.Open(ctx, inv)
	if err != nil {
		return TUOutcome{Invocation: inv, Err: fmt.Errorf("pipeline: open %s: %w", inv.File, err)}
	}
	defer source.Close()

	analyzer := usage.New(opts.Resolver)
	scanner := astscan.New(source, opts.AstDumpWindow, analyzer.OnNode)
	if err := scanner.Run(); err != nil {
		return TUOutcome{Invocation: inv, Err: fmt.Errorf("pipeline: scan %s: %w", inv.File, err)}
	}

	results := analyzer.Results()

	if !opts.NoCache && tuCache != nil {
		if hash, err := cache.InvocationHash(inv, sourcePath); err == nil {
			_ = tuCache.Set(sourcePath, hash, resultsToRecords(results))
		}
	}

	return TUOutcome{Invocation: inv, Results: results}
}

// Aggregate unions results across every translation unit by location
// string: a location reported used by any TU is used in the aggregate,
// per the explicit non-goal that aggregation is a plain union.
func Aggregate(outcomes []TUOutcome) []Result {
	used := make(map[string]bool)
	for _, o := range outcomes {
		for _, r := range o.Results {
			if r.Used {
				used[r.Location] = true
			} else if _, ok := used[r.Location]; !ok {
				used[r.Location] = false
			}
		}
	}

	results := make([]Result, 0, len(used))
	for loc, isUsed := range used {
		results = append(results, Result{Location: loc, Used: isUsed})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Location < results[j].Location })
	return results
}

func recordsToResults(records []cache.Record) []usage.Result {
	results := make([]usage.Result, len(records))
	for i, r := range records {
		results[i] = usage.Result{
			Location: fmt.Sprintf("%s:%d:%d", r.File, r.Line, r.Col),
			Used:     r.Used,
		}
	}
	return results
}

func resultsToRecords(results []usage.Result) []cache.Record {
	records := make([]cache.Record, 0, len(results))
	for _, r := range results {
		file, line, col := splitLocation(r.Location)
		records = append(records, cache.Record{File: file, Line: line, Col: col, Used: r.Used})
	}
	return records
}

// splitLocation reverses locationString's "file:line:col" concatenation,
// splitting from the right so Windows drive-letter-free, colon-free file
// paths round-trip (this repo's locations come from project-relative paths
// only, which never contain a colon).
func splitLocation(loc string) (file string, line, col uint32) {
	var lineStr, colStr string
	i := len(loc)
	for j := 0; j < 2; j++ {
		k := lastIndexByte(loc[:i], ':')
		if k < 0 {
			return loc, 0, 0
		}
		switch j {
		case 0:
			colStr = loc[k+1:]
			i = k
		case 1:
			lineStr = loc[k+1 : i]
			file = loc[:k]
		}
	}
	line = parseUint32(lineStr)
	col = parseUint32(colStr)
	return file, line, col
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func parseUint32(s string) uint32 {
	var v uint32
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		v = v*10 + uint32(c-'0')
	}
	return v
}
