package astscan

// tokenKind enumerates the JSON lexical tokens the tokenizer produces.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokObjectBegin
	tokObjectEnd
	tokArrayBegin
	tokArrayEnd
	tokString
	tokNumber
	tokTrue
	tokFalse
	tokNull
)

// token is a single lexical unit. For tokString and tokNumber, bytes is a
// copy of the token's content taken out of the tokenizer's window, so it
// stays valid across later tokenizer calls.
type token struct {
	kind      tokenKind
	bytes     []byte
	hadEscape bool // tokString only: true if the raw content contained a backslash
}

// tokenizer turns a bounded byte window into a stream of JSON tokens.
// Commas and colons are structural noise consumed silently; the caller never
// sees them, matching how the node/node_loc dispatch only cares about keys,
// values, and container boundaries.
type tokenizer struct {
	w    *window
	line int
	col  int
}

func newTokenizer(w *window) *tokenizer {
	return &tokenizer{w: w, line: 1, col: 1}
}

func (t *tokenizer) errorAt(kind ErrorKind, msg string) error {
	return newScanError(kind, t.line, t.col, msg)
}

// advancePos moves the line/col cursor over n consumed bytes of raw content
// (the window's own advance moves the read position; this keeps the two in
// sync without re-scanning already-consumed bytes).
func (t *tokenizer) advancePos(b []byte) {
	for _, c := range b {
		if c == '\n' {
			t.line++
			t.col = 1
		} else {
			t.col++
		}
	}
}

func (t *tokenizer) hasByte() bool {
	_, ok := t.w.byteAt(0)
	if ok {
		return true
	}
	_ = t.w.fill()
	_, ok = t.w.byteAt(0)
	return ok
}

func (t *tokenizer) consume(n int) {
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		c, _ := t.w.byteAt(i)
		b[i] = c
	}
	t.advancePos(b)
	t.w.advance(n)
}

func (t *tokenizer) skipWhitespace() error {
	for {
		if !t.hasByte() {
			return nil
		}
		b, _ := t.w.byteAt(0)
		switch b {
		case ' ', '\t', '\r', '\n', ',', ':':
			t.consume(1)
		default:
			return nil
		}
	}
}

func isDigitOrSign(b byte) bool {
	return (b >= '0' && b <= '9') || b == '-'
}

// next returns the next token, skipping structural whitespace/comma/colon
// noise first.
func (t *tokenizer) next() (token, error) {
	if err := t.skipWhitespace(); err != nil {
		return token{}, err
	}
	if !t.hasByte() {
		if t.w.eof {
			return token{kind: tokEOF}, nil
		}
		return token{}, t.errorAt(UnexpectedEndOfInput, "")
	}
	b, _ := t.w.byteAt(0)
	switch {
	case b == '{':
		t.consume(1)
		return token{kind: tokObjectBegin}, nil
	case b == '}':
		t.consume(1)
		return token{kind: tokObjectEnd}, nil
	case b == '[':
		t.consume(1)
		return token{kind: tokArrayBegin}, nil
	case b == ']':
		t.consume(1)
		return token{kind: tokArrayEnd}, nil
	case b == '"':
		return t.scanString()
	case b == 't':
		return t.scanLiteral("true", tokTrue)
	case b == 'f':
		return t.scanLiteral("false", tokFalse)
	case b == 'n':
		return t.scanLiteral("null", tokNull)
	case isDigitOrSign(b):
		return t.scanNumber()
	default:
		return token{}, t.errorAt(MalformedJSON, "unexpected byte")
	}
}

func (t *tokenizer) scanLiteral(lit string, kind tokenKind) (token, error) {
	for i := 0; i < len(lit); i++ {
		b, ok := t.w.byteAt(i)
		if !ok {
			if err := t.w.fill(); err != nil {
				return token{}, err
			}
			b, ok = t.w.byteAt(i)
			if !ok {
				return token{}, t.errorAt(UnexpectedEndOfInput, "")
			}
		}
		if b != lit[i] {
			return token{}, t.errorAt(MalformedJSON, "invalid literal")
		}
	}
	t.consume(len(lit))
	return token{kind: kind}, nil
}

func (t *tokenizer) scanNumber() (token, error) {
	i := 0
	for {
		b, ok := t.w.byteAt(i)
		if !ok {
			if err := t.w.fill(); err != nil {
				return token{}, err
			}
			b, ok = t.w.byteAt(i)
			if !ok {
				if t.w.eof {
					break
				}
				if i >= t.w.remaining() {
					return token{}, t.errorAt(ValueTooLong, "")
				}
				continue
			}
		}
		if isNumberByte(b) {
			i++
			continue
		}
		break
	}
	if i == 0 {
		return token{}, t.errorAt(MalformedJSON, "empty number")
	}
	content := append([]byte(nil), t.w.slice(0, i)...)
	t.consume(i)
	return token{kind: tokNumber, bytes: content}, nil
}

func isNumberByte(b byte) bool {
	switch {
	case b >= '0' && b <= '9':
		return true
	case b == '-' || b == '+' || b == '.' || b == 'e' || b == 'E':
		return true
	}
	return false
}

func (t *tokenizer) scanString() (token, error) {
	// Consume the opening quote.
	t.consume(1)
	i := 0
	hadEscape := false
	for {
		b, ok := t.w.byteAt(i)
		if !ok {
			if err := t.w.fill(); err != nil {
				return token{}, err
			}
			b, ok = t.w.byteAt(i)
			if !ok {
				if t.w.eof {
					return token{}, t.errorAt(UnexpectedEndOfInput, "")
				}
				if i >= t.w.remaining()-1 {
					return token{}, t.errorAt(ValueTooLong, "")
				}
				continue
			}
		}
		if b == '\\' {
			hadEscape = true
			i += 2
			continue
		}
		if b == '"' {
			content := append([]byte(nil), t.w.slice(0, i)...)
			t.advancePos(t.w.slice(0, i+1))
			t.w.advance(i + 1)
			return token{kind: tokString, bytes: content, hadEscape: hadEscape}, nil
		}
		i++
	}
}
