package genotype

import "fmt"

// ParseError reports a syntax error at a 0-based offset into the text.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fS syntax error at %d: %s", e.Offset, e.Msg)
}

// ValidityError reports a syntactically valid genotype that breaks a
// numeric or structural rule. Offset is the start of the offending node's
// text, or -1 when the node was not parsed from text.
type ValidityError struct {
	Node   NodeID
	Offset int
	Msg    string
}

func (e *ValidityError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("invalid fS genotype at node %d: %s", e.Node, e.Msg)
	}
	return fmt.Sprintf("invalid fS genotype at %d: %s", e.Offset, e.Msg)
}
