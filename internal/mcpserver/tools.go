package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	toon "github.com/toon-format/toon-go"

	"github.com/deadvisor-dev/deadvisor/internal/builddb"
	"github.com/deadvisor-dev/deadvisor/internal/cache"
	"github.com/deadvisor-dev/deadvisor/internal/config"
	"github.com/deadvisor-dev/deadvisor/internal/output"
	"github.com/deadvisor-dev/deadvisor/internal/pipeline"
	"github.com/deadvisor-dev/deadvisor/internal/scope"
)

// FindUnusedDeclarationsInput mirrors the CLI's scan flags. There is no
// confidence field: unlike a scored analyzer, this tool's verdict is
// boolean (used or not), so there is nothing to threshold.
type FindUnusedDeclarationsInput struct {
	Paths           []string `json:"paths,omitempty" jsonschema:"Project paths to scan. The first path is treated as the project root. Defaults to the current directory."`
	CompileCommands string   `json:"compile_commands,omitempty" jsonschema:"Path to compile_commands.json. Defaults to the project's configured build database."`
	Format          string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
	DeadOnly        bool     `json:"dead_only,omitempty" jsonschema:"Only return unused declarations, omitting used ones."`
}

func describeFindUnusedDeclarations() string {
	return `Finds unused C/C++ function, method, constructor, and conversion-operator
declarations from a compiler's JSON AST dump, without building or running
the program under analysis.

USE WHEN:
- Auditing a C/C++ codebase for dead entry points before a refactor
- Confirming a declaration has no remaining callers before deleting it
- Checking whether a header still needs to export a given symbol

INTERPRETING RESULTS:
- Each result is a declaration's source location paired with a boolean used
  verdict; a location appearing as used in any translation unit reporting
  it is used in the aggregate.
- The verdict is a lower bound on real usage: callers reached only through
  function pointers, virtual dispatch, or code the configured build does
  not compile are not observed and will read as unused.

METRICS RETURNED:
- results: one {location, used} pair per interned declaration
- summary: total/unused counts, unused ratio, mean per-file unused ratio,
  and per-file unused density sorted descending`
}

func getPaths(input FindUnusedDeclarationsInput) []string {
	if len(input.Paths) > 0 {
		return input.Paths
	}
	return []string{"."}
}

func getFormat(input FindUnusedDeclarationsInput) output.Format {
	if input.Format == "" {
		return output.FormatTOON
	}
	return output.ParseFormat(input.Format)
}

func handleFindUnusedDeclarations(ctx context.Context, req *mcp.CallToolRequest, input FindUnusedDeclarationsInput) (*mcp.CallToolResult, any, error) {
	paths := getPaths(input)
	projectRoot := paths[0]
	if abs, err := filepath.Abs(projectRoot); err == nil {
		projectRoot = abs
	}

	cfg := config.LoadOrDefault()

	compileCommandsPath := input.CompileCommands
	if compileCommandsPath == "" {
		compileCommandsPath = cfg.Build.CompileCommands
	}

	f, err := os.Open(compileCommandsPath)
	if err != nil {
		return toolError(fmt.Sprintf("open %s: %v", compileCommandsPath, err))
	}
	defer f.Close()

	invocations, err := builddb.LoadCompileCommands(f)
	if err != nil {
		return toolError(err.Error())
	}
	if len(invocations) == 0 {
		return toolError(fmt.Sprintf("no translation units found in %s", compileCommandsPath))
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

	var tuCache *cache.TUCache
	if cfg.Cache.Enabled {
		if c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true); err == nil {
			tuCache = c
		}
	}

	outcomes := pipeline.Run(ctx, invocations, tuCache, pipeline.Options{
		Resolver: resolver,
		Jobs:     cfg.Build.Jobs,
	})

	results := pipeline.Aggregate(outcomes)
	if input.DeadOnly {
		filtered := make([]pipeline.Result, 0, len(results))
		for _, r := range results {
			if !r.Used {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}
	summary := pipeline.Summarize(results)

	data := struct {
		Results []pipeline.Result `json:"results"`
		Summary pipeline.Summary  `json:"summary"`
	}{Results: results, Summary: summary}

	return toolResult(data, getFormat(input))
}

// toolResult renders data in format and wraps it as a CallToolResult, the
// same text-content shape every tool in this server returns.
func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return toolError(err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + msg}},
		IsError: true,
	}, nil, nil
}

// formatOutput renders data directly, independent of the Formatter's
// stdout/file writer split the CLI needs: a tool call always returns text
// content inline, never a file path.
func formatOutput(data any, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		buf, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(buf), nil
	case output.FormatMarkdown:
		buf, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return "```json\n" + string(buf) + "\n```", nil
	default:
		buf, err := toon.Marshal(data, toon.WithIndent(2))
		if err != nil {
			return "", err
		}
		return string(buf), nil
	}
}
