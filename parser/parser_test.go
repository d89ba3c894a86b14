package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runParse(t *testing.T, input string, cfg Config) string {
	t.Helper()
	if cfg.SourceName == "" {
		cfg.SourceName = "test.h.c"
	}
	var out strings.Builder
	ok, err := Parse(strings.NewReader(input), &out, cfg)
	require.NoError(t, err)
	assert.True(t, ok)
	return out.String()
}

func headerConfig() Config {
	return Config{Token: "@", TabWidth: 4, SourceName: "test.h.c"}
}

func stripConfig() Config {
	return Config{Token: "@", TabWidth: 4, Strip: true, SourceName: "test.c"}
}

func TestSickyPrefix(t *testing.T) {
	input := "@[static]\n@ int x = 3;\n"
	got := runParse(t, input, headerConfig())
	assert.Contains(t, got, "#line 2 \"test.h.c\"\nstatic int x;\n")
}

func TestStickyPrefixStrip(t *testing.T) {
	input := "@[static]\n@ int x = 3;\n"
	got := runParse(t, input, stripConfig())
	// +1 for the single leading #line directive, which is not part of the
	// source's own line count.
	assert.Equal(t, strings.Count(input, "\n")+1, strings.Count(got, "\n"))
	assert.Contains(t, got, "x = 3;")
}

func TestBlockIndentationTrim(t *testing.T) {
	input := "@ {\n    struct S {\n        int a;\n    };\n}\n"
	got := runParse(t, input, headerConfig())
	assert.Contains(t, got, "struct S {\n    int a;\n};\n")
}

func TestBlockNoTrimWhenTabWidthZero(t *testing.T) {
	input := "@ {\n    struct S {\n        int a;\n    };\n}\n"
	cfg := headerConfig()
	cfg.TabWidth = 0
	got := runParse(t, input, cfg)
	assert.Contains(t, got, "    struct S {\n        int a;\n    };\n")
}

func TestAttributes(t *testing.T) {
	input := "@[:packed,aligned: struct_t]\n@ struct_t make(void);\n"
	got := runParse(t, input, headerConfig())
	assert.Contains(t, got, "struct_t make(void) __attribute__((__packed__)) __attribute__((__aligned__));\n")
}

func TestParenPrefixWithNestedParens(t *testing.T) {
	input := "@(__declspec(dllexport))\n@ int f(void);\n"
	got := runParse(t, input, headerConfig())
	assert.Contains(t, got, "__declspec(dllexport) int f(void);\n")
}

func TestDefinitionStrippedToDeclaration(t *testing.T) {
	input := "@ int g(int x) { return x+1; }\n"
	got := runParse(t, input, headerConfig())
	assert.Contains(t, got, "#line 1 \"test.h.c\"\nint g(int x);\n")
	assert.NotContains(t, got, "return")
}

func TestStripPreservesLineCount(t *testing.T) {
	input := "int a;\nint b;\n@ {\n  int c;\n  int d;\n}\nint e;\nint f;\nint g;\nint h;\n"
	got := runParse(t, input, stripConfig())
	assert.Equal(t, strings.Count(input, "\n")+1, strings.Count(got, "\n"))
}

func TestNonAnnotatedSourceStripsToUnchangedPlusDirective(t *testing.T) {
	input := "int a = 1;\nint b = 2;\n"
	got := runParse(t, input, stripConfig())
	assert.Equal(t, "#line 1 \"test.c\"\n"+input, got)
}

func TestSourcePrefixAffectsStripOnly(t *testing.T) {
	input := "@[static][extern]\n@ int y = 5;\n"
	got := runParse(t, input, stripConfig())
	assert.Contains(t, got, "extern int y = 5;")
}

func TestPerAnnotationSourcePrefixDoesNotPersist(t *testing.T) {
	input := "@(hdr1)[src1] a;\n@(hdr2) b;\n"
	got := runParse(t, input, stripConfig())
	assert.Contains(t, got, "src1 a;")
	assert.Contains(t, got, "b;")
	assert.NotContains(t, got, "src1 b;")
}

func TestPlainMemberWithoutPrefix(t *testing.T) {
	input := "@ void f(void);\n"
	got := runParse(t, input, headerConfig())
	assert.Contains(t, got, "void f(void);\n")
	assert.NotContains(t, got, "__attribute__")
}

func TestPerAnnotationPrefixDoesNotPersist(t *testing.T) {
	input := "@[static] int x;\n@ int y;\n"
	got := runParse(t, input, headerConfig())
	assert.Contains(t, got, "static int x;")
	assert.Contains(t, got, "int y;")
	assert.NotContains(t, got, "static int y;")
}

func TestSyntaxErrorOnDanglingAttributeColon(t *testing.T) {
	input := "@[:packed struct_t]\n@ struct_t make(void);\n"
	var out strings.Builder
	ok, err := Parse(strings.NewReader(input), &out, headerConfig())
	assert.False(t, ok)
	require.Error(t, err)
	var synErr *SyntaxError
	assert.ErrorAs(t, err, &synErr)
}

func TestSyntaxErrorOnUnexpectedCloserAfterToken(t *testing.T) {
	input := "@;\n"
	var out strings.Builder
	ok, err := Parse(strings.NewReader(input), &out, headerConfig())
	assert.False(t, ok)
	require.Error(t, err)
	var synErr *SyntaxError
	assert.ErrorAs(t, err, &synErr)
}

func TestMemberOverflow(t *testing.T) {
	input := "@ " + strings.Repeat("x", 513) + ";\n"
	var out strings.Builder
	ok, err := Parse(strings.NewReader(input), &out, headerConfig())
	assert.False(t, ok)
	require.Error(t, err)
	var synErr *SyntaxError
	assert.ErrorAs(t, err, &synErr)
}

func TestTraceHookFires(t *testing.T) {
	var events []string
	cfg := headerConfig()
	cfg.Trace = func(event string, pos Pos) {
		events = append(events, event)
	}
	runParse(t, "@[static]\n@ int x;\n", cfg)
	assert.Contains(t, events, "token")
	assert.Contains(t, events, "member-end")
}

func TestValidAttributeName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"packed", true},
		{"_leading_underscore", true},
		{"", false},
		{"1bad", false},
		{"has space", false},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, validAttributeName(c.name))
		})
	}
}
