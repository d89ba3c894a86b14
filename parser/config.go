package parser

// Config carries the settings of a single Parse call. A Config is read-only
// for the duration of that call and is never mutated or shared by Parse.
type Config struct {
	// Token is the non-empty sentinel that opens an annotation. Defaults to "@".
	Token string

	// TabWidth is the number of spaces a tab counts as while computing the
	// common indentation trimmed from a verbatim block body. 0 disables
	// trimming entirely (block bodies are copied verbatim).
	TabWidth int

	// Strip selects strip mode (true) over header-generation mode (false).
	Strip bool

	// SourceName is the identifier written into emitted #line directives.
	SourceName string

	// Trace, if non-nil, is called for notable state transitions during
	// parsing (token recognised, prefix started/ended, sticky prefix
	// committed, block started/ended, member ended).
	// The core parser never logs; the driver wires this to its logger when
	// running verbosely.
	Trace func(event string, pos Pos)
}

// DefaultConfig returns the tool's built-in defaults: token "@", tab width 4,
// header-generation mode.
func DefaultConfig(sourceName string) Config {
	return Config{
		Token:      "@",
		TabWidth:   4,
		Strip:      false,
		SourceName: sourceName,
	}
}

func (c Config) trace(event string, pos Pos) {
	if c.Trace != nil {
		c.Trace(event, pos)
	}
}
