package server

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/loxvm/compiler"
	"github.com/chazu/loxvm/pkg/bytecode"
)

func newTestLSP(t *testing.T) *LspServer {
	t.Helper()
	v := bytecode.NewVM()
	v.UseCompiler(compiler.Compile)
	s := NewLSP(v)
	t.Cleanup(s.worker.Stop)
	return s
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnostics_Valid(t *testing.T) {
	s := newTestLSP(t)
	require.Empty(t, s.diagnostics("(-1 + 2) * 3 - -4"))
}

func TestDiagnostics_HugeLiteral(t *testing.T) {
	s := newTestLSP(t)
	require.Empty(t, s.diagnostics("1"+strings.Repeat("0", 400)+" - 1"))
}

func TestDiagnostics_CompileError(t *testing.T) {
	s := newTestLSP(t)
	diags := s.diagnostics("1 +\n(2 *")
	require.Len(t, diags, 1)

	d := diags[0]
	require.Equal(t, protocol.UInteger(1), d.Range.Start.Line)
	require.Equal(t, protocol.UInteger(1), d.Range.End.Line)
	require.Equal(t, protocol.UInteger(len("(2 *")), d.Range.End.Character)
	require.Equal(t, "Error at end: Expect expression.", d.Message)
	require.NotNil(t, d.Severity)
	require.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	require.NotNil(t, d.Source)
	require.Equal(t, lspName, *d.Source)
}

func TestDiagnostics_LexicalError(t *testing.T) {
	s := newTestLSP(t)
	diags := s.diagnostics("1 @ 2")
	require.Len(t, diags, 1)
	require.Contains(t, diags[0].Message, "unexpected character")
	require.Equal(t, protocol.UInteger(0), diags[0].Range.Start.Line)
}

func TestNewDiagnostic_LineOutOfRange(t *testing.T) {
	d := newDiagnostic("1", 5, "boom")
	require.Equal(t, protocol.UInteger(4), d.Range.Start.Line)
	require.Equal(t, protocol.UInteger(0), d.Range.End.Character)

	d = newDiagnostic("abc\r\n", 1, "boom")
	require.Equal(t, protocol.UInteger(3), d.Range.End.Character)
}

// ---------------------------------------------------------------------------
// Hover
// ---------------------------------------------------------------------------

func TestHover_Value(t *testing.T) {
	s := newTestLSP(t)
	out := s.hover("(3.4 + 1.4) / 2.0")

	require.Contains(t, out, "**Value:** `2.4`")
	require.Contains(t, out, "== expression ==")
	require.Contains(t, out, "DIVIDE")
}

func TestHover_CompileError(t *testing.T) {
	s := newTestLSP(t)
	out := s.hover("(1")

	require.Contains(t, out, "Compile error")
	require.Contains(t, out, "Expect ')' after expression.")
}

// ---------------------------------------------------------------------------
// Worker
// ---------------------------------------------------------------------------

func TestVMWorker_Run(t *testing.T) {
	w := NewVMWorker(bytecode.NewVM())
	defer w.Stop()

	chunk, err := compiler.Compile("6 * 7")
	require.NoError(t, err)
	v, err := w.Run(chunk)
	require.NoError(t, err)
	require.Equal(t, bytecode.Value(42), v)
}

func TestVMWorker_RecoversPanic(t *testing.T) {
	w := NewVMWorker(bytecode.NewVM())
	defer w.Stop()

	_, err := w.Do(func(*bytecode.VM) any { panic("boom") })
	require.EqualError(t, err, "boom")

	// The worker keeps serving after a panic.
	got, err := w.Do(func(*bytecode.VM) any { return 1 })
	require.NoError(t, err)
	require.Equal(t, 1, got)
}

func TestVMWorker_StoppedRejects(t *testing.T) {
	w := NewVMWorker(bytecode.NewVM())
	w.Stop()
	w.Stop()

	_, err := w.Do(func(*bytecode.VM) any { return nil })
	require.ErrorIs(t, err, errWorkerStopped)
}

func TestVMWorker_ConcurrentStop(t *testing.T) {
	w := NewVMWorker(bytecode.NewVM())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Stop()
		}()
	}
	wg.Wait()

	_, err := w.Do(func(*bytecode.VM) any { return nil })
	require.ErrorIs(t, err, errWorkerStopped)
}
