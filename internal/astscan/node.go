package astscan

// Location mirrors one loc/expansionLoc/spellingLoc object from the AST
// dump. Fields are raw strings; numeric fields (line, col) are kept as text
// since the dump may emit either a JSON string or a JSON number for them and
// the analyzer only ever concatenates them into a location string.
type Location struct {
	File         string
	Line         string
	PresumedFile string
	PresumedLine string
	Col          string
}

func (l *Location) reset() {
	*l = Location{}
}

// AstNode is the scanner's transient, per-node output. A fresh AstNode is
// built for every node object and handed to the caller at flush time; it
// must not be retained past the callback that receives it.
type AstNode struct {
	ID                  string
	Kind                string
	PreviousDecl        string
	MangledName         string
	IsImplicit          bool
	IsUsed              bool
	IsExplicitlyDeleted bool

	Location          Location
	HasLocation       bool
	SecondaryLocation Location
	HasSecondaryLocation bool
}

// NodeFunc is called once per flushed node, in pre-order (parent before
// children). Returning an error aborts the scan.
type NodeFunc func(*AstNode) error
