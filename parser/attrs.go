package parser

import (
	"bufio"
	"unicode/utf8"

	"github.com/smasher164/xid"
)

// attributeAccumulator stores the ordered list of attribute names carried by
// a header prefix's ":name1,name2,...:" sub-expression, grounded on the
// original \x01-separated / \x00-terminated ma_buf encoding but expressed as
// a plain slice of strings.
type attributeAccumulator struct {
	names []string
}

func (a *attributeAccumulator) reset() {
	a.names = a.names[:0]
}

func (a *attributeAccumulator) add(name string) {
	a.names = append(a.names, name)
}

func (a *attributeAccumulator) empty() bool {
	return len(a.names) == 0
}

// validAttributeName reports whether name is shaped like a C identifier:
// a Unicode XID_Start rune (or underscore) followed by zero or more
// XID_Continue runes. This mirrors the identifier classification the
// teacher stack uses for SQL identifiers, repurposed to validate
// __attribute__ arguments instead.
func validAttributeName(name string) bool {
	if name == "" {
		return false
	}
	first, size := utf8.DecodeRuneInString(name)
	if first == utf8.RuneError && size <= 1 {
		return false
	}
	if !(xid.Start(first) || first == '_') {
		return false
	}
	for _, r := range name[size:] {
		if !(xid.Continue(r) || r == '_') {
			return false
		}
	}
	return true
}

// writeAttributes appends one " __attribute__((__name__))" clause per
// recorded attribute name, in recorded order.
func writeAttributes(dst *bufio.Writer, attrs *attributeAccumulator) error {
	for _, name := range attrs.names {
		if _, err := dst.WriteString(" __attribute__((__" + name + "__))"); err != nil {
			return err
		}
	}
	return nil
}
