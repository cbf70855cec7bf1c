package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/deadvisor-dev/deadvisor/internal/builddb"
	"github.com/deadvisor-dev/deadvisor/internal/cache"
	"github.com/deadvisor-dev/deadvisor/internal/output"
	"github.com/deadvisor-dev/deadvisor/internal/pipeline"
	"github.com/deadvisor-dev/deadvisor/internal/scope"
)

// newScanProgressBar renders one tick per translation unit. runScan adds the
// ticks after pipeline.Run has returned, so the bar does not advance while
// the worker pool is still running; it is cleared once filled.
func newScanProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("Scanning translation units..."),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

var scanCmd = &cobra.Command{
	Use:     "scan [path...]",
	Aliases: []string{"s"},
	Short:   "Scan a project's AST dumps for unused declarations",
	RunE:    runScan,
}

func init() {
	scanCmd.Flags().StringP("format", "f", "", "Output format: text, json, markdown, toon (overrides config)")
	scanCmd.Flags().StringP("output", "o", "", "Write output to file instead of stdout")
	scanCmd.Flags().IntP("jobs", "j", 0, "Number of concurrent translation units to process (0 = 2x NumCPU)")
	scanCmd.Flags().Bool("no-cache", false, "Disable the per-translation-unit result cache")
	scanCmd.Flags().Bool("dead-only", false, "Only print unused declarations")
	scanCmd.Flags().String("compile-commands", "", "Path to compile_commands.json (overrides config)")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}
	projectRoot := paths[0]
	if cfg.Resolver.ProjectRoot != "" {
		projectRoot = cfg.Resolver.ProjectRoot
	}
	if abs, err := filepath.Abs(projectRoot); err == nil {
		projectRoot = abs
	}

	compileCommandsPath, _ := cmd.Flags().GetString("compile-commands")
	if compileCommandsPath == "" {
		compileCommandsPath = cfg.Build.CompileCommands
	}

	f, err := os.Open(compileCommandsPath)
	if err != nil {
		return fmt.Errorf("scan: open %s: %w", compileCommandsPath, err)
	}
	defer f.Close()

	invocations, err := builddb.LoadCompileCommands(f)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if len(invocations) == 0 {
		color.Yellow("No translation units found in %s", compileCommandsPath)
		return nil
	}

	resolverOpts := []scope.Option{}
	if cfg.Resolver.BuildDir != "" {
		resolverOpts = append(resolverOpts, scope.WithBuildDir(cfg.Resolver.BuildDir))
	}
	if len(cfg.Resolver.ExcludedSubpaths) > 0 {
		resolverOpts = append(resolverOpts, scope.WithExcludedSubpaths(cfg.Resolver.ExcludedSubpaths...))
	}
	if cfg.Resolver.Gitignore {
		resolverOpts = append(resolverOpts, scope.WithGitignoreExcludes())
	}
	resolver := scope.New(projectRoot, resolverOpts...)

	noCache, _ := cmd.Flags().GetBool("no-cache")
	var tuCache *cache.TUCache
	if !noCache && cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
		if err != nil {
			return fmt.Errorf("scan: open cache: %w", err)
		}
		tuCache = c
	}

	jobs, _ := cmd.Flags().GetInt("jobs")
	if jobs == 0 {
		jobs = cfg.Build.Jobs
	}

	bar := newScanProgressBar(len(invocations))
	outcomes := pipeline.Run(cmd.Context(), invocations, tuCache, pipeline.Options{
		Resolver: resolver,
		Jobs:     jobs,
		NoCache:  noCache,
	})
	for range outcomes {
		bar.Add(1)
	}
	bar.Finish()
	bar.Clear()

	for _, o := range outcomes {
		if o.Err != nil {
			color.Red("scan: %s: %v", o.Invocation.File, o.Err)
		}
	}

	results := pipeline.Aggregate(outcomes)
	summary := pipeline.Summarize(results)

	deadOnly, _ := cmd.Flags().GetBool("dead-only")
	if !deadOnly {
		deadOnly = cfg.Output.DeadOnly
	}

	formatStr, _ := cmd.Flags().GetString("format")
	if formatStr == "" {
		formatStr = cfg.Output.Format
	}
	outputFile, _ := cmd.Flags().GetString("output")

	formatter, err := output.NewFormatter(output.ParseFormat(formatStr), outputFile, cfg.Output.Color)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	defer formatter.Close()

	return formatter.Output(newScanReport(results, summary, deadOnly))
}

// newScanReport assembles a table plus footer from the aggregated results,
// the way the teacher's analyze subcommands build a Renderable out of a
// structured analysis result.
func newScanReport(results []pipeline.Result, summary pipeline.Summary, deadOnly bool) *output.Table {
	headers := []string{"Location", "Used"}
	var rows [][]string
	for _, r := range results {
		if deadOnly && r.Used {
			continue
		}
		rows = append(rows, []string{r.Location, strconv.FormatBool(r.Used)})
	}

	footer := []string{
		"Total: " + strconv.Itoa(summary.Total),
		"Unused: " + strconv.Itoa(summary.Unused) + " (" + strconv.FormatFloat(summary.UnusedRatio*100, 'f', 1, 64) + "%)",
	}

	return output.NewTable("Unused declarations", headers, rows, footer, struct {
		Results []pipeline.Result `json:"results"`
		Summary pipeline.Summary  `json:"summary"`
	}{Results: results, Summary: summary})
}
