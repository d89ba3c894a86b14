package parser

import "fmt"

// Pos is a 1-indexed line/column position inside a named source file.
//
// Column 0 is used for the newline byte itself (see Parse): everything
// else reports from column 1.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}
