package usage

import "github.com/deadvisor-dev/deadvisor/internal/pool"

// Result pairs an interned location string with its final used/unused
// verdict, for one translation unit.
type Result struct {
	Location string
	Used     bool
}

// Results enumerates every interned location, unordered: external glue
// (the CLI, the aggregation pipeline) sorts by file/line/col when a stable
// presentation order is needed.
func (a *Analyzer) Results() []Result {
	results := make([]Result, 0, a.pool.Len())
	a.pool.Iter(func(h pool.Handle) {
		results = append(results, Result{
			Location: a.pool.String(h),
			Used:     a.usedLocs.Contains(uint32(h)),
		})
	})
	return results
}
