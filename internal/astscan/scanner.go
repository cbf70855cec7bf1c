package astscan

import "io"

// Scanner drives a recursive-descent walk of the AST dump: one JSON object
// per AstNode, "inner" arrays holding children. It never materializes the
// whole tree — each node's callback fires as soon as that node's own fields
// (excluding children) are known, before its children are visited, which is
// the parent-before-children ordering the usage analyzer depends on.
type Scanner struct {
	tok *tokenizer
	on  NodeFunc
}

// New creates a Scanner reading from r and invoking on for every flushed
// node. windowSize overrides the default 64 KiB bounded buffer; pass 0 for
// the default.
func New(r io.Reader, windowSize int, on NodeFunc) *Scanner {
	return &Scanner{
		tok: newTokenizer(newWindow(r, windowSize)),
		on:  on,
	}
}

// Run scans the entire input, which must be a single top-level node object.
// Empty input and input that ends before the top-level node closes both
// surface as UnexpectedEndOfInput.
func (s *Scanner) Run() error {
	first, err := s.tok.next()
	if err != nil {
		return err
	}
	if first.kind == tokEOF {
		return s.tok.errorAt(UnexpectedEndOfInput, "empty input")
	}
	if first.kind != tokObjectBegin {
		return s.tok.errorAt(ExpectedNode, "top-level value must be a node object")
	}
	if err := s.parseNode(); err != nil {
		return err
	}
	return nil
}

// parseNode assumes the opening '{' of a node object has already been
// consumed. It reads keys until the node's "inner" key (if any) or the
// closing brace, flushing the node to s.on either at "inner" (before
// descending into children) or at the closing brace (a childless node).
func (s *Scanner) parseNode() error {
	var node AstNode
	flushed := false

	flush := func() error {
		if flushed {
			return nil
		}
		flushed = true
		return s.on(&node)
	}

	for {
		tk, err := s.tok.next()
		if err != nil {
			return err
		}
		switch tk.kind {
		case tokObjectEnd:
			return flush()
		case tokString:
			key := string(tk.bytes)
			if tk.hadEscape {
				return s.tok.errorAt(UnsupportedObjectKeyEscapes, key)
			}
			if err := s.dispatchKey(key, &node, flush); err != nil {
				return err
			}
		case tokEOF:
			return s.tok.errorAt(UnexpectedEndOfInput, "")
		default:
			return s.tok.errorAt(MalformedJSON, "expected object key or closing brace")
		}
	}
}

func (s *Scanner) dispatchKey(key string, node *AstNode, flush func() error) error {
	switch key {
	case "id":
		v, err := s.expectScalar()
		if err != nil {
			return err
		}
		node.ID = v
	case "kind":
		v, err := s.expectScalar()
		if err != nil {
			return err
		}
		node.Kind = v
	case "previousDecl":
		v, err := s.expectScalar()
		if err != nil {
			return err
		}
		node.PreviousDecl = v
	case "mangledName":
		v, err := s.expectScalar()
		if err != nil {
			return err
		}
		node.MangledName = v
	case "isUsed":
		v, err := s.expectBool()
		if err != nil {
			return err
		}
		node.IsUsed = v
	case "isImplicit":
		v, err := s.expectBool()
		if err != nil {
			return err
		}
		node.IsImplicit = v
	case "explicitlyDeleted":
		v, err := s.expectBool()
		if err != nil {
			return err
		}
		node.IsExplicitlyDeleted = v
	case "loc":
		if err := s.parseLoc(&node.Location, &node.SecondaryLocation); err != nil {
			return err
		}
		node.HasLocation = true
		if node.SecondaryLocation != (Location{}) {
			node.HasSecondaryLocation = true
		}
	case "inner":
		if err := flush(); err != nil {
			return err
		}
		return s.parseChildren()
	default:
		return s.skipValue()
	}
	return nil
}

// parseChildren assumes the "inner" key has just been seen; it expects an
// array and recursively parses one node per element.
func (s *Scanner) parseChildren() error {
	tk, err := s.tok.next()
	if err != nil {
		return err
	}
	if tk.kind != tokArrayBegin {
		return s.tok.errorAt(ExpectedArray, "inner must be an array")
	}
	for {
		tk, err := s.tok.next()
		if err != nil {
			return err
		}
		switch tk.kind {
		case tokArrayEnd:
			return nil
		case tokObjectBegin:
			if err := s.parseNode(); err != nil {
				return err
			}
		case tokEOF:
			return s.tok.errorAt(UnexpectedEndOfInput, "")
		default:
			return s.tok.errorAt(ExpectedNode, "inner array elements must be node objects")
		}
	}
}

// parseLoc assumes "loc"'s opening '{' has not yet been consumed; it reads
// the loc object, populating primary out of its own file/line/col/
// presumedFile/presumedLine fields, and secondary out of expansionLoc or
// spellingLoc's file/line/col (whichever is present; the dump never emits
// both on one node in practice, and the spec does not distinguish them
// downstream).
func (s *Scanner) parseLoc(primary, secondary *Location) error {
	tk, err := s.tok.next()
	if err != nil {
		return err
	}
	if tk.kind != tokObjectBegin {
		return s.tok.errorAt(ExpectedObject, "loc must be an object")
	}
	for {
		tk, err := s.tok.next()
		if err != nil {
			return err
		}
		switch tk.kind {
		case tokObjectEnd:
			return nil
		case tokString:
			key := string(tk.bytes)
			switch key {
			case "file":
				v, err := s.expectScalar()
				if err != nil {
					return err
				}
				primary.File = v
			case "line":
				v, err := s.expectScalar()
				if err != nil {
					return err
				}
				primary.Line = v
			case "presumedFile":
				v, err := s.expectScalar()
				if err != nil {
					return err
				}
				primary.PresumedFile = v
			case "presumedLine":
				v, err := s.expectScalar()
				if err != nil {
					return err
				}
				primary.PresumedLine = v
			case "col":
				v, err := s.expectScalar()
				if err != nil {
					return err
				}
				primary.Col = v
			case "expansionLoc", "spellingLoc":
				if err := s.parseNestedLoc(secondary); err != nil {
					return err
				}
			default:
				if err := s.skipValue(); err != nil {
					return err
				}
			}
		case tokEOF:
			return s.tok.errorAt(UnexpectedEndOfInput, "")
		default:
			return s.tok.errorAt(MalformedJSON, "expected loc key or closing brace")
		}
	}
}

// parseNestedLoc reads an expansionLoc/spellingLoc object, which may not
// itself nest further expansionLoc/spellingLoc.
func (s *Scanner) parseNestedLoc(dest *Location) error {
	tk, err := s.tok.next()
	if err != nil {
		return err
	}
	if tk.kind != tokObjectBegin {
		return s.tok.errorAt(ExpectedObject, "expansionLoc/spellingLoc must be an object")
	}
	for {
		tk, err := s.tok.next()
		if err != nil {
			return err
		}
		switch tk.kind {
		case tokObjectEnd:
			return nil
		case tokString:
			key := string(tk.bytes)
			switch key {
			case "file":
				v, err := s.expectScalar()
				if err != nil {
					return err
				}
				dest.File = v
			case "line":
				v, err := s.expectScalar()
				if err != nil {
					return err
				}
				dest.Line = v
			case "presumedFile":
				v, err := s.expectScalar()
				if err != nil {
					return err
				}
				dest.PresumedFile = v
			case "presumedLine":
				v, err := s.expectScalar()
				if err != nil {
					return err
				}
				dest.PresumedLine = v
			case "col":
				v, err := s.expectScalar()
				if err != nil {
					return err
				}
				dest.Col = v
			default:
				if err := s.skipValue(); err != nil {
					return err
				}
			}
		case tokEOF:
			return s.tok.errorAt(UnexpectedEndOfInput, "")
		default:
			return s.tok.errorAt(MalformedJSON, "expected loc key or closing brace")
		}
	}
}

// expectScalar reads the next token and requires it be a string or number,
// returning its text.
func (s *Scanner) expectScalar() (string, error) {
	tk, err := s.tok.next()
	if err != nil {
		return "", err
	}
	switch tk.kind {
	case tokString, tokNumber:
		return string(tk.bytes), nil
	case tokEOF:
		return "", s.tok.errorAt(UnexpectedEndOfInput, "")
	default:
		return "", s.tok.errorAt(ExpectedStringOrNumber, "")
	}
}

// expectBool reads the next token and requires it be a JSON boolean.
func (s *Scanner) expectBool() (bool, error) {
	tk, err := s.tok.next()
	if err != nil {
		return false, err
	}
	switch tk.kind {
	case tokTrue:
		return true, nil
	case tokFalse:
		return false, nil
	case tokEOF:
		return false, s.tok.errorAt(UnexpectedEndOfInput, "")
	default:
		return false, s.tok.errorAt(ExpectedBool, "")
	}
}

// skipValue discards the next value, whatever shape it is, tracking nesting
// depth so an object or array of arbitrary size is consumed in full.
func (s *Scanner) skipValue() error {
	tk, err := s.tok.next()
	if err != nil {
		return err
	}
	switch tk.kind {
	case tokObjectBegin:
		return s.skipContainer(tokObjectEnd)
	case tokArrayBegin:
		return s.skipContainer(tokArrayEnd)
	case tokString, tokNumber, tokTrue, tokFalse, tokNull:
		return nil
	case tokEOF:
		return s.tok.errorAt(UnexpectedEndOfInput, "")
	default:
		return s.tok.errorAt(MalformedJSON, "unexpected token while skipping value")
	}
}

// skipContainer discards tokens until the matching close token at depth 0,
// recursing into any nested containers it encounters.
func (s *Scanner) skipContainer(closeKind tokenKind) error {
	for {
		tk, err := s.tok.next()
		if err != nil {
			return err
		}
		switch tk.kind {
		case closeKind:
			return nil
		case tokObjectBegin:
			if err := s.skipContainer(tokObjectEnd); err != nil {
				return err
			}
		case tokArrayBegin:
			if err := s.skipContainer(tokArrayEnd); err != nil {
				return err
			}
		case tokEOF:
			return s.tok.errorAt(UnexpectedEndOfInput, "")
		default:
			// scalar token inside the container; nothing to do
		}
	}
}
