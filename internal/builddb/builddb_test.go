package builddb

import (
	"strings"
	"testing"
)

func TestLoadCompileCommandsArguments(t *testing.T) {
	doc := `[
		{"directory":"/proj/build","file":"/proj/src/a.cpp","arguments":["clang++","-c","/proj/src/a.cpp","-I/proj/include"]}
	]`
	invs, err := LoadCompileCommands(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(invs) != 1 {
		t.Fatalf("got %d invocations, want 1", len(invs))
	}
	if invs[0].Dir != "/proj/build" || invs[0].File != "/proj/src/a.cpp" {
		t.Fatalf("unexpected invocation: %+v", invs[0])
	}
	if invs[0].Compiler() != "clang++" {
		t.Fatalf("got compiler %q", invs[0].Compiler())
	}
}

func TestLoadCompileCommandsCommandString(t *testing.T) {
	doc := `[
		{"directory":"/proj/build","file":"/proj/src/a.c","command":"clang -c /proj/src/a.c -DFOO=1 -I \"/proj/include dir\""}
	]`
	invs, err := LoadCompileCommands(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(invs) != 1 {
		t.Fatalf("got %d invocations, want 1", len(invs))
	}
	want := []string{"clang", "-c", "/proj/src/a.c", "-DFOO=1", "-I", "/proj/include dir"}
	got := invs[0].Args
	if len(got) != len(want) {
		t.Fatalf("got args %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got args %v, want %v", got, want)
		}
	}
}

func TestLoadCompileCommandsSkipsEmptyArgs(t *testing.T) {
	doc := `[{"directory":"/proj","file":"/proj/a.cpp"}]`
	invs, err := LoadCompileCommands(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(invs) != 0 {
		t.Fatalf("got %d invocations, want 0", len(invs))
	}
}

func TestLoadNinjaCommands(t *testing.T) {
	doc := "clang++ -c /proj/src/a.cpp -o a.o\nclang -c /proj/src/b.c -o b.o\n\n"
	invs, err := LoadNinjaCommands(strings.NewReader(doc), "/proj/build")
	if err != nil {
		t.Fatal(err)
	}
	if len(invs) != 2 {
		t.Fatalf("got %d invocations, want 2", len(invs))
	}
	if invs[0].File != "/proj/src/a.cpp" || invs[0].Dir != "/proj/build" {
		t.Fatalf("unexpected invocation: %+v", invs[0])
	}
	if invs[1].File != "/proj/src/b.c" {
		t.Fatalf("unexpected invocation: %+v", invs[1])
	}
}

func TestLanguageDetection(t *testing.T) {
	cpp := Invocation{File: "a.cpp", Args: []string{"clang++", "-c", "a.cpp"}}
	if cpp.Language() != "c++" {
		t.Fatalf("got %q, want c++", cpp.Language())
	}
	c := Invocation{File: "a.c", Args: []string{"clang", "-c", "a.c"}}
	if c.Language() != "c" {
		t.Fatalf("got %q, want c", c.Language())
	}
	explicit := Invocation{File: "a.inc", Args: []string{"clang", "-x", "c++", "-c", "a.inc"}}
	if explicit.Language() != "c++" {
		t.Fatalf("got %q, want c++", explicit.Language())
	}
}
