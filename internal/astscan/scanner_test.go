package astscan

import (
	"strings"
	"testing"
)

func collectNodes(t *testing.T, input string, windowSize int) []AstNode {
	t.Helper()
	var got []AstNode
	s := New(strings.NewReader(input), windowSize, func(n *AstNode) error {
		got = append(got, *n)
		return nil
	})
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return got
}

func TestScanEmptyInputIsUnexpectedEOF(t *testing.T) {
	s := New(strings.NewReader(""), 0, func(n *AstNode) error { return nil })
	err := s.Run()
	if err == nil {
		t.Fatal("expected error")
	}
	se, ok := err.(*ScanError)
	if !ok || se.Kind != UnexpectedEndOfInput {
		t.Fatalf("got %v, want UnexpectedEndOfInput", err)
	}
}

func TestScanTopLevelMustBeObject(t *testing.T) {
	s := New(strings.NewReader(`[1,2]`), 0, func(n *AstNode) error { return nil })
	err := s.Run()
	se, ok := err.(*ScanError)
	if !ok || se.Kind != ExpectedNode {
		t.Fatalf("got %v, want ExpectedNode", err)
	}
}

func TestScanSingleLeafNode(t *testing.T) {
	input := `{"id":"0x1","kind":"FunctionDecl","mangledName":"_Z3foov","loc":{"file":"a.cpp","line":3,"col":5},"isUsed":true}`
	nodes := collectNodes(t, input, 0)
	if len(nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(nodes))
	}
	n := nodes[0]
	if n.ID != "0x1" || n.Kind != "FunctionDecl" || n.MangledName != "_Z3foov" {
		t.Fatalf("unexpected node: %+v", n)
	}
	if n.Location.File != "a.cpp" || n.Location.Line != "3" || n.Location.Col != "5" {
		t.Fatalf("unexpected location: %+v", n.Location)
	}
	if !n.IsUsed {
		t.Fatal("expected isUsed true")
	}
}

func TestScanParentBeforeChildren(t *testing.T) {
	input := `{
		"id":"0x1","kind":"TranslationUnitDecl",
		"inner":[
			{"id":"0x2","kind":"FunctionDecl","loc":{"file":"a.cpp","line":1,"col":1}},
			{"id":"0x3","kind":"FunctionDecl","loc":{"file":"a.cpp","line":2,"col":1},
				"inner":[
					{"id":"0x4","kind":"CompoundStmt"}
				]
			}
		]
	}`
	nodes := collectNodes(t, input, 0)
	var ids []string
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	want := []string{"0x1", "0x2", "0x3", "0x4"}
	if len(ids) != len(want) {
		t.Fatalf("got ids %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got ids %v, want %v", ids, want)
		}
	}
}

func TestScanUnknownKeysAreSkipped(t *testing.T) {
	input := `{"id":"0x1","kind":"FunctionDecl","type":{"qualType":"void ()"},"range":{"begin":{},"end":{}},"extra":[1,2,[3,4]],"loc":{"file":"a.cpp","line":1,"col":1}}`
	nodes := collectNodes(t, input, 0)
	if len(nodes) != 1 || nodes[0].ID != "0x1" {
		t.Fatalf("got %+v", nodes)
	}
}

func TestScanNumericScalarsAccepted(t *testing.T) {
	input := `{"id":123,"kind":"FunctionDecl","loc":{"file":"a.cpp","line":7,"col":2}}`
	nodes := collectNodes(t, input, 0)
	if nodes[0].ID != "123" || nodes[0].Location.Line != "7" {
		t.Fatalf("got %+v", nodes[0])
	}
}

func TestScanExpansionLocPopulatesSecondary(t *testing.T) {
	input := `{"id":"0x1","kind":"FunctionDecl","loc":{"file":"gen.h","line":10,"col":3,"expansionLoc":{"file":"a.cpp","line":20,"col":1}}}`
	nodes := collectNodes(t, input, 0)
	n := nodes[0]
	if !n.HasSecondaryLocation {
		t.Fatal("expected secondary location to be populated")
	}
	if n.SecondaryLocation.File != "a.cpp" || n.SecondaryLocation.Line != "20" {
		t.Fatalf("got %+v", n.SecondaryLocation)
	}
}

func TestScanObjectKeyWithEscapeIsRejected(t *testing.T) {
	input := `{"id":"0x1","kind":"FunctionDecl","ma\ngledName":"x"}`
	s := New(strings.NewReader(input), 0, func(n *AstNode) error { return nil })
	err := s.Run()
	se, ok := err.(*ScanError)
	if !ok || se.Kind != UnsupportedObjectKeyEscapes {
		t.Fatalf("got %v, want UnsupportedObjectKeyEscapes", err)
	}
}

func TestScanStringTooLongWithSmallWindow(t *testing.T) {
	longVal := strings.Repeat("a", 200)
	input := `{"id":"` + longVal + `"}`
	s := New(strings.NewReader(input), 64, func(n *AstNode) error { return nil })
	err := s.Run()
	se, ok := err.(*ScanError)
	if !ok || se.Kind != ValueTooLong {
		t.Fatalf("got %v, want ValueTooLong", err)
	}
}

func TestScanNumberTooLongWithSmallWindow(t *testing.T) {
	longNum := "1" + strings.Repeat("0", 200)
	input := `{"id":"0x1","line":` + longNum + `}`
	s := New(strings.NewReader(input), 64, func(n *AstNode) error { return nil })
	err := s.Run()
	se, ok := err.(*ScanError)
	if !ok || se.Kind != ValueTooLong {
		t.Fatalf("got %v, want ValueTooLong", err)
	}
}

func TestScanMismatchedBoolFieldFails(t *testing.T) {
	input := `{"id":"0x1","kind":"FunctionDecl","isUsed":"yes"}`
	s := New(strings.NewReader(input), 0, func(n *AstNode) error { return nil })
	err := s.Run()
	se, ok := err.(*ScanError)
	if !ok || se.Kind != ExpectedBool {
		t.Fatalf("got %v, want ExpectedBool", err)
	}
}

func TestScanInnerMustBeArray(t *testing.T) {
	input := `{"id":"0x1","kind":"FunctionDecl","inner":{"id":"0x2"}}`
	s := New(strings.NewReader(input), 0, func(n *AstNode) error { return nil })
	err := s.Run()
	se, ok := err.(*ScanError)
	if !ok || se.Kind != ExpectedArray {
		t.Fatalf("got %v, want ExpectedArray", err)
	}
}
