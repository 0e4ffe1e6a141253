package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chazu/loxvm/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// FuzzScanner: the scanner never panics and always terminates.
// ---------------------------------------------------------------------------

func FuzzScanner(f *testing.F) {
	seeds := []string{
		`( ) { } , . - + ; / *`,
		`! != = == > >= < <=`,
		`3.4`, `1.`, `.5`, `007`,
		`"hello"`, `"unterminated`, "\"multi\nline\"",
		`and class else false for fun if nil or print return super this true var while`,
		`_id id_2 x`,
		"// comment\n1",
		`@ # $ π`,
		`var a = (x-y)*(y/x)`,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, source string) {
		s := NewScanner(source)
		// Every token consumes at least one byte.
		for i := 0; i <= len(source)+1; i++ {
			if _, ok := s.Next(); !ok {
				return
			}
		}
		t.Fatalf("scanner did not terminate on %q", source)
	})
}

// ---------------------------------------------------------------------------
// FuzzCompile: compilation either fails cleanly or yields a valid chunk
// that runs without a runtime error.
// ---------------------------------------------------------------------------

func FuzzCompile(f *testing.F) {
	seeds := []string{
		`(-1 + 2) * 3 - -4`,
		`(3.4 + 1.4) / 2.0`,
		`1 - 2 - 3`,
		`1 / 0`,
		`((`, `)`, `1 +`, `@`, ``,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, source string) {
		chunk, err := Compile(source)
		if err != nil {
			require.Nil(t, chunk, "Compile(%q) returned a chunk with error %v", source, err)
			return
		}
		require.NoError(t, chunk.Validate(), "Compile(%q)", source)
		_, err = bytecode.NewVM().Run(chunk)
		require.NoError(t, err, "Run(%q)", source)
	})
}

// ---------------------------------------------------------------------------
// FuzzNumberLiteral: any digit string, with an optional fraction, scans to a
// single NUMBER token and compiles to the value strconv parses from it.
// ---------------------------------------------------------------------------

func FuzzNumberLiteral(f *testing.F) {
	f.Add("3", "4")
	f.Add("007", "")
	f.Add("1"+strings.Repeat("0", 400), "")
	f.Add(strings.Repeat("9", 320), strings.Repeat("5", 40))
	f.Add("0", strings.Repeat("0", 330)+"1")

	digitsOnly := func(s string) string {
		return strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, s)
	}

	f.Fuzz(func(t *testing.T, whole, frac string) {
		lit := digitsOnly(whole)
		if lit == "" {
			lit = "0"
		}
		if frac = digitsOnly(frac); frac != "" {
			lit += "." + frac
		}
		requireNumberRoundTrip(t, lit)
	})
}
