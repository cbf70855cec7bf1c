package driver

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/deadvisor-dev/deadvisor/internal/builddb"
)

// writeSidecar writes an AST dump sidecar file, creating its parent
// directory if the test laid the translation unit in a subdirectory.
func writeSidecar(t *testing.T, path, astJSON string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll(%s): %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(astJSON), 0644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func TestOpenReadsSidecarFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.cpp")
	sidecar := src + AstSidecarSuffix
	writeSidecar(t, sidecar, `{"id":"0x1"}`)

	inv := builddb.Invocation{Dir: dir, File: src, Args: []string{"clang++", "-c", src}}
	source, err := Open(context.Background(), inv)
	if err != nil {
		t.Fatal(err)
	}
	defer source.Close()

	data, err := io.ReadAll(source)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"id":"0x1"}` {
		t.Fatalf("got %q", data)
	}
	if source.TU != src {
		t.Fatalf("got TU %q", source.TU)
	}
}

func TestOpenReadsDirectSidecarNamedInPlaceOfSource(t *testing.T) {
	dir := t.TempDir()
	sidecar := filepath.Join(dir, "a.cpp.ast.json")
	writeSidecar(t, sidecar, `{"id":"0x2"}`)

	inv := builddb.Invocation{Dir: dir, File: sidecar}
	source, err := Open(context.Background(), inv)
	if err != nil {
		t.Fatal(err)
	}
	defer source.Close()

	data, err := io.ReadAll(source)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"id":"0x2"}` {
		t.Fatalf("got %q", data)
	}
}

func TestFilterCodegenFlagsDropsOutputAndDependencyFlags(t *testing.T) {
	in := []string{"-c", "-o", "a.o", "-MD", "-MF", "a.d", "-Wall", "-I/inc"}
	got := filterCodegenFlags(in)
	want := []string{"-Wall", "-I/inc"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestResolveSourcePathJoinsRelative(t *testing.T) {
	inv := builddb.Invocation{Dir: "/proj/build", File: "../src/a.cpp"}
	got := ResolveSourcePath(inv)
	want := filepath.Clean("/proj/build/../src/a.cpp")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestResolveSourcePathKeepsAbsolute(t *testing.T) {
	inv := builddb.Invocation{Dir: "/proj/build", File: "/proj/src/a.cpp"}
	if got := ResolveSourcePath(inv); got != "/proj/src/a.cpp" {
		t.Fatalf("got %q", got)
	}
}
