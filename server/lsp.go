package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/loxvm/compiler"
	"github.com/chazu/loxvm/pkg/bytecode"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "loxvm-lsp"

var log = commonlog.GetLogger("loxvm.server")

// LspServer reports compile diagnostics and evaluation results for
// expression documents.
type LspServer struct {
	worker *VMWorker

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server wrapping the given VM.
func NewLSP(v *bytecode.VM) *LspServer {
	s := &LspServer{
		worker:  NewVMWorker(v),
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover: s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("%s %s initializing", lspName, s.version)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()

	if !ok || strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: s.hover(text),
		},
	}, nil
}

// hover renders the document's value (or its errors) and its bytecode.
func (s *LspServer) hover(text string) string {
	var b strings.Builder

	chunk, err := compiler.Compile(text)
	if err != nil {
		b.WriteString("**Compile error**\n\n```\n")
		b.WriteString(err.Error())
		b.WriteString("\n```")
		return b.String()
	}

	value, err := s.worker.Run(chunk)
	if err != nil {
		fmt.Fprintf(&b, "**Runtime error:** %v\n\n", err)
	} else {
		fmt.Fprintf(&b, "**Value:** `%s`\n\n", value)
	}

	b.WriteString("```\n")
	bytecode.DisassembleChunk(&b, chunk, "expression")
	b.WriteString("```")
	return b.String()
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := s.diagnostics(text)
	log.Debugf("%s: %d diagnostics", uri, len(diagnostics))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnostics compiles text and, if that succeeds, runs it. Every compile
// diagnostic and any runtime fault becomes an LSP diagnostic spanning the
// offending line.
func (s *LspServer) diagnostics(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	c := compiler.NewCompiler(text)
	chunk, err := c.Compile()
	if err != nil {
		for _, d := range c.Diagnostics() {
			msg := fmt.Sprintf("Error%s: %s", d.Where, d.Message)
			diagnostics = append(diagnostics, newDiagnostic(text, d.Line, msg))
		}
		return diagnostics
	}

	if _, err := s.worker.Run(chunk); err != nil {
		var rerr *bytecode.RuntimeError
		line := 1
		if errors.As(err, &rerr) {
			line = rerr.Line
		}
		diagnostics = append(diagnostics, newDiagnostic(text, line, err.Error()))
	}
	return diagnostics
}

// newDiagnostic builds an error diagnostic covering the whole of a
// 1-based source line.
func newDiagnostic(text string, line int, message string) protocol.Diagnostic {
	if line < 1 {
		line = 1
	}
	width := 0
	if lines := strings.Split(text, "\n"); line <= len(lines) {
		width = len(strings.TrimRight(lines[line-1], "\r"))
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(line - 1), Character: 0},
			End:   protocol.Position{Line: protocol.UInteger(line - 1), Character: protocol.UInteger(width)},
		},
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}
}

func boolPtr(b bool) *bool {
	return &b
}
