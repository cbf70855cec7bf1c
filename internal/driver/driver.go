// Package driver turns a build-database invocation into a byte stream the
// scanner can read: either by spawning the configured C/C++ compiler with
// the flags needed to produce a JSON AST dump, or by reading a pre-dumped
// sidecar file. This is the thin glue the core depends on only through the
// Source contract; process spawning and compiler flag handling are
// explicitly out of scope for the scanner/analyzer core.
package driver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/deadvisor-dev/deadvisor/internal/builddb"
)

// Source is the contract the scanner consumes: a readable AST dump plus
// enough identity to key a cache entry.
type Source struct {
	io.Reader
	closer func() error
	// TU identifies the translation unit for caching purposes.
	TU string
}

// Close releases any resource backing the Source (a spawned process's
// stdout pipe, an open file). Safe to call on a zero-value-derived Source.
func (s Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// AstSidecarSuffix names the pre-dumped file a build can supply instead of
// letting the driver invoke the compiler, e.g. "a.cpp" -> "a.cpp.ast.json".
const AstSidecarSuffix = ".ast.json"

// Open resolves inv to a Source. If a sidecar AST dump exists alongside the
// source file (or was named directly in place of it), that file is read
// instead of invoking the compiler.
func Open(ctx context.Context, inv builddb.Invocation) (Source, error) {
	if sidecar := sidecarPath(inv.File); sidecar != "" {
		if f, err := os.Open(sidecar); err == nil {
			return Source{
				Reader: bufio.NewReader(f),
				closer: f.Close,
				TU:     inv.File,
			}, nil
		}
	}
	if strings.HasSuffix(inv.File, AstSidecarSuffix) {
		f, err := os.Open(inv.File)
		if err != nil {
			return Source{}, fmt.Errorf("driver: open sidecar %s: %w", inv.File, err)
		}
		return Source{Reader: bufio.NewReader(f), closer: f.Close, TU: inv.File}, nil
	}
	return spawn(ctx, inv)
}

func sidecarPath(sourceFile string) string {
	if sourceFile == "" {
		return ""
	}
	return sourceFile + AstSidecarSuffix
}

// spawn runs the invocation's compiler with its recorded arguments (minus
// -c and the output and dependency-file flags) plus -fsyntax-only -Xclang -ast-dump=json
// -Xclang -ast-dump-filter= -w, which produces the JSON AST dump on stdout
// without emitting object code.
func spawn(ctx context.Context, inv builddb.Invocation) (Source, error) {
	compilerPath, err := inv.LookPath()
	if err != nil {
		return Source{}, fmt.Errorf("driver: resolve compiler for %s: %w", inv.File, err)
	}

	args := append([]string{}, inv.Args[1:]...)
	args = filterCodegenFlags(args)
	args = append(args, "-fsyntax-only", "-Xclang", "-ast-dump=json", "-Xclang", "-ast-dump-filter=", "-w")

	cmd := exec.CommandContext(ctx, compilerPath, args...)
	cmd.Dir = inv.Dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Source{}, fmt.Errorf("driver: stdout pipe for %s: %w", inv.File, err)
	}
	if err := cmd.Start(); err != nil {
		return Source{}, fmt.Errorf("driver: start compiler for %s: %w", inv.File, err)
	}

	return Source{
		Reader: bufio.NewReader(stdout),
		closer: cmd.Wait,
		TU:     inv.File,
	}, nil
}

// filterCodegenFlags strips flags that either conflict with
// -fsyntax-only/-ast-dump or name an output file that would otherwise be
// clobbered by a syntax-only invocation sharing the same build directory.
func filterCodegenFlags(args []string) []string {
	out := make([]string, 0, len(args))
	skipNext := false
	for _, a := range args {
		if skipNext {
			skipNext = false
			continue
		}
		switch {
		case a == "-o" || a == "-MF" || a == "-MT" || a == "-MQ":
			skipNext = true
		case a == "-c":
		case a == "-MD" || a == "-MMD":
		case strings.HasPrefix(a, "-M") && a != "-M":
		default:
			out = append(out, a)
		}
	}
	return out
}

// ResolveSourcePath returns inv.File joined onto inv.Dir if it is relative,
// matching the resolver's own join-onto-build-dir rule for consistency
// between what the driver reads and what the analyzer reports.
func ResolveSourcePath(inv builddb.Invocation) string {
	if filepath.IsAbs(inv.File) {
		return inv.File
	}
	return filepath.Join(inv.Dir, inv.File)
}
