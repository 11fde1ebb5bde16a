package sppf

import "fmt"

// Symbol is a grammar symbol: either a terminal (a lexer TokType, named for
// diagnostics) or a nonterminal (a grammar rule's left-hand side).
type Symbol struct {
	Name     string
	Value    int // terminal: xs.TokType; nonterminal: an index into the grammar's rule table
	Terminal bool
}

// IsTerminal reports whether this symbol is a terminal.
func (s *Symbol) IsTerminal() bool { return s.Terminal }

func (s *Symbol) String() string {
	if s.Terminal {
		return fmt.Sprintf("'%s'", s.Name)
	}
	return s.Name
}

// Epsilon is the pseudo-symbol standing for an empty right-hand side.
var Epsilon = &Symbol{Name: "ε", Value: -2}
