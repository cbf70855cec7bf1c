package pipeline

import (
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary reports aggregate statistics over a finished run's results, the
// "more than a count" step this pipeline needs per-file density for: the
// same role gonum plays in the teacher's trend/graph statistics.
type Summary struct {
	Total          int
	Unused         int
	UnusedRatio    float64
	MeanFileRatio  float64
	FileDensity    []FileDensity
}

// FileDensity is one file's declaration counts and its own unused ratio
// (Unused / Total). Summary.FileDensity is sorted by Ratio descending.
type FileDensity struct {
	File   string
	Total  int
	Unused int
	Ratio  float64
}

// Summarize computes run-wide statistics over an aggregated result set.
func Summarize(results []Result) Summary {
	if len(results) == 0 {
		return Summary{}
	}

	perFileTotal := make(map[string]int)
	perFileUnused := make(map[string]int)
	unused := 0

	for _, r := range results {
		file := locationFile(r.Location)
		perFileTotal[file]++
		if !r.Used {
			unused++
			perFileUnused[file]++
		}
	}

	ratios := make([]float64, 0, len(perFileTotal))
	densities := make([]FileDensity, 0, len(perFileTotal))
	for file, total := range perFileTotal {
		u := perFileUnused[file]
		ratio := float64(u) / float64(total)
		ratios = append(ratios, ratio)
		densities = append(densities, FileDensity{File: file, Total: total, Unused: u, Ratio: ratio})
	}
	sort.Slice(densities, func(i, j int) bool {
		if densities[i].Ratio != densities[j].Ratio {
			return densities[i].Ratio > densities[j].Ratio
		}
		return densities[i].File < densities[j].File
	})

	return Summary{
		Total:         len(results),
		Unused:        unused,
		UnusedRatio:   float64(unused) / float64(len(results)),
		MeanFileRatio: stat.Mean(ratios, nil),
		FileDensity:   densities,
	}
}

func locationFile(loc string) string {
	file, _, _ := splitLocation(loc)
	return filepath.ToSlash(file)
}
