package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadvisor-dev/deadvisor/internal/builddb"
	"github.com/deadvisor-dev/deadvisor/internal/cache"
	"github.com/deadvisor-dev/deadvisor/internal/driver"
	"github.com/deadvisor-dev/deadvisor/internal/scope"
	"github.com/deadvisor-dev/deadvisor/internal/usage"
)

func writeAstDump(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunProcessesOneTranslationUnit(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.cpp")
	require.NoError(t, os.WriteFile(src, []byte("int f() {}"), 0o644))
	writeAstDump(t, src+driver.AstSidecarSuffix, `{
		"id": "0x1",
		"kind": "FunctionDecl",
		"loc": {"file": "`+src+`", "line": 10, "col": 5},
		"mangledName": "f",
		"inner": []
	}`)

	resolver := scope.New(dir)
	inv := builddb.Invocation{Dir: dir, File: src}

	outcomes := Run(context.Background(), []builddb.Invocation{inv}, nil, Options{Resolver: resolver, NoCache: true})
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)
	require.Len(t, outcomes[0].Results, 1)
	assert.Equal(t, "a.cpp:10:5", outcomes[0].Results[0].Location)
	assert.False(t, outcomes[0].Results[0].Used)
}

func TestRunMarksMainUsed(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.cpp")
	require.NoError(t, os.WriteFile(src, []byte("int main() {}"), 0o644))
	writeAstDump(t, src+driver.AstSidecarSuffix, `{
		"id": "0x1",
		"kind": "FunctionDecl",
		"loc": {"file": "`+src+`", "line": 1, "col": 1},
		"mangledName": "main",
		"inner": []
	}`)

	resolver := scope.New(dir)
	inv := builddb.Invocation{Dir: dir, File: src}

	outcomes := Run(context.Background(), []builddb.Invocation{inv}, nil, Options{Resolver: resolver, NoCache: true})
	require.Len(t, outcomes, 1)
	require.Len(t, outcomes[0].Results, 1)
	assert.True(t, outcomes[0].Results[0].Used)
}

func TestAggregateUnionsOverlappingLocations(t *testing.T) {
	a := []TUOutcome{
		{Results: toResults(map[string]bool{"a.cpp:1:1": false, "a.cpp:2:1": true})},
		{Results: toResults(map[string]bool{"a.cpp:1:1": true, "b.cpp:5:1": false})},
	}

	got := Aggregate(a)
	byLoc := map[string]bool{}
	for _, r := range got {
		byLoc[r.Location] = r.Used
	}

	require.Len(t, got, 3)
	assert.True(t, byLoc["a.cpp:1:1"], "used-by-any-TU should dominate the union")
	assert.True(t, byLoc["a.cpp:2:1"])
	assert.False(t, byLoc["b.cpp:5:1"])
}

func TestRunUsesCacheOnSecondPass(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.cpp")
	require.NoError(t, os.WriteFile(src, []byte("int f() {}"), 0o644))
	writeAstDump(t, src+driver.AstSidecarSuffix, `{
		"id": "0x1",
		"kind": "FunctionDecl",
		"loc": {"file": "`+src+`", "line": 10, "col": 5},
		"mangledName": "f",
		"inner": []
	}`)

	resolver := scope.New(dir)
	inv := builddb.Invocation{Dir: dir, File: src}

	tuc, err := cache.New(filepath.Join(dir, "cache"), 24, true)
	require.NoError(t, err)

	first := Run(context.Background(), []builddb.Invocation{inv}, tuc, Options{Resolver: resolver})
	require.Len(t, first, 1)
	require.False(t, first[0].CacheHit)

	second := Run(context.Background(), []builddb.Invocation{inv}, tuc, Options{Resolver: resolver})
	require.Len(t, second, 1)
	assert.True(t, second[0].CacheHit)
	require.Len(t, second[0].Results, 1)
	assert.Equal(t, first[0].Results[0].Location, second[0].Results[0].Location)
}

func TestSummarizeComputesUnusedRatioAndDensity(t *testing.T) {
	results := []Result{
		{Location: "a.cpp:1:1", Used: false},
		{Location: "a.cpp:2:1", Used: true},
		{Location: "b.cpp:1:1", Used: false},
	}

	summary := Summarize(results)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Unused)
	assert.InDelta(t, 2.0/3.0, summary.UnusedRatio, 1e-9)
	require.Len(t, summary.FileDensity, 2)
	assert.Equal(t, "b.cpp", summary.FileDensity[0].File, "b.cpp has a 100% unused ratio and should sort first")
}

func toResults(m map[string]bool) []usage.Result {
	results := make([]usage.Result, 0, len(m))
	for loc, used := range m {
		results = append(results, usage.Result{Location: loc, Used: used})
	}
	return results
}
