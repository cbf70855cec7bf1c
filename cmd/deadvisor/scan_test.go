package main

import (
	"testing"

	"github.com/deadvisor-dev/deadvisor/internal/pipeline"
)

func TestNewScanReportDeadOnlyFiltersRowsButKeepsFullData(t *testing.T) {
	results := []pipeline.Result{
		{Location: "a.cpp:1:1", Used: false},
		{Location: "b.cpp:2:1", Used: true},
		{Location: "c.cpp:3:1", Used: false},
	}
	summary := pipeline.Summarize(results)

	table := newScanReport(results, summary, true)

	if len(table.Rows) != 2 {
		t.Fatalf("deadOnly=true should keep only unused rows, got %d rows: %v", len(table.Rows), table.Rows)
	}
	for _, row := range table.Rows {
		if row[1] != "false" {
			t.Errorf("deadOnly=true row should report Used=false, got %v", row)
		}
	}

	data, ok := table.Data.(struct {
		Results []pipeline.Result `json:"results"`
		Summary pipeline.Summary  `json:"summary"`
	})
	if !ok {
		t.Fatalf("table.Data has unexpected type %T", table.Data)
	}
	if len(data.Results) != len(results) {
		t.Errorf("table.Data should carry the full unfiltered result set regardless of deadOnly, got %d results, want %d", len(data.Results), len(results))
	}
}

func TestNewScanReportIncludesAllRowsByDefault(t *testing.T) {
	results := []pipeline.Result{
		{Location: "a.cpp:1:1", Used: false},
		{Location: "b.cpp:2:1", Used: true},
	}
	summary := pipeline.Summarize(results)

	table := newScanReport(results, summary, false)

	if len(table.Rows) != len(results) {
		t.Fatalf("deadOnly=false should keep every row, got %d rows, want %d", len(table.Rows), len(results))
	}
}

func TestNewScanReportFooterReportsTotalsAndRatio(t *testing.T) {
	results := []pipeline.Result{
		{Location: "a.cpp:1:1", Used: false},
		{Location: "b.cpp:2:1", Used: true},
	}
	summary := pipeline.Summarize(results)

	table := newScanReport(results, summary, false)

	if len(table.Footer) != 2 {
		t.Fatalf("expected a 2-entry footer, got %v", table.Footer)
	}
	if table.Footer[0] != "Total: 2" {
		t.Errorf("footer[0] = %q, want %q", table.Footer[0], "Total: 2")
	}
	if table.Footer[1] != "Unused: 1 (50.0%)" {
		t.Errorf("footer[1] = %q, want %q", table.Footer[1], "Unused: 1 (50.0%)")
	}
}

func TestScanCmdFlagDefaults(t *testing.T) {
	flags := map[string]string{
		"format":           "",
		"output":           "",
		"compile-commands": "",
	}
	for name, want := range flags {
		f := scanCmd.Flags().Lookup(name)
		if f == nil {
			t.Fatalf("scan command missing flag %q", name)
		}
		if f.DefValue != want {
			t.Errorf("flag %q default = %q, want %q", name, f.DefValue, want)
		}
	}

	boolFlags := []string{"no-cache", "dead-only"}
	for _, name := range boolFlags {
		f := scanCmd.Flags().Lookup(name)
		if f == nil {
			t.Fatalf("scan command missing flag %q", name)
		}
		if f.DefValue != "false" {
			t.Errorf("flag %q default = %q, want %q", name, f.DefValue, "false")
		}
	}

	jobs := scanCmd.Flags().Lookup("jobs")
	if jobs == nil {
		t.Fatal("scan command missing flag \"jobs\"")
	}
	if jobs.DefValue != "0" {
		t.Errorf("jobs default = %q, want %q", jobs.DefValue, "0")
	}
}
