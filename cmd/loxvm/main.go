// loxvm CLI - compile and run arithmetic expressions on the bytecode VM
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/loxvm/compiler"
	"github.com/chazu/loxvm/history"
	"github.com/chazu/loxvm/manifest"
	"github.com/chazu/loxvm/pkg/bytecode"
	"github.com/chazu/loxvm/pkg/image"
	"github.com/chazu/loxvm/server"
)

var log = commonlog.GetLogger("loxvm.cli")

// Exit codes, following sysexits.h.
const (
	exitOK           = 0
	exitUsage        = 64
	exitCompileError = 65
	exitRuntimeError = 70
	exitIOError      = 74
)

func main() {
	verbosity := flag.Int("v", -1, "Log verbosity (overrides [log] verbosity)")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	trace := flag.Bool("trace", false, "Trace execution to stderr")
	disassemble := flag.Bool("d", false, "Print the compiled chunk before running")
	output := flag.String("o", "", "Compile to an image file instead of running")
	lspMode := flag.Bool("lsp", false, "Start language server on stdio")
	configDir := flag.String("config", ".", "Directory to start searching for "+manifest.FileName)
	noHistory := flag.Bool("no-history", false, "Do not record REPL evaluations")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: loxvm [options] [file]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles and runs an arithmetic expression, or starts a REPL.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  loxvm                      # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  loxvm expr.lox             # Compile and run a file\n")
		fmt.Fprintf(os.Stderr, "  loxvm -d -trace expr.lox   # Show bytecode and trace execution\n")
		fmt.Fprintf(os.Stderr, "  loxvm -o expr.loxc expr.lox  # Compile to an image\n")
		fmt.Fprintf(os.Stderr, "  loxvm expr.loxc            # Run a compiled image\n")
		fmt.Fprintf(os.Stderr, "  loxvm -lsp                 # Start language server\n")
	}
	flag.Parse()

	cfg, err := manifest.FindAndLoad(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIOError)
	}
	if cfg == nil {
		cfg = manifest.Default()
	}

	if *verbosity >= 0 {
		cfg.Log.Verbosity = *verbosity
	}
	commonlog.Configure(cfg.Log.Verbosity, cfg.LogFile())
	if cfg.Dir != "" {
		log.Infof("loaded %s from %s", manifest.FileName, cfg.Dir)
	}

	a := newApp(os.Stdout, os.Stderr)
	a.disassemble = *disassemble || cfg.VM.Disassemble
	a.setTrace(*trace || cfg.VM.Trace)

	if *lspMode {
		if err := server.NewLSP(a.vm).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(exitIOError)
		}
		os.Exit(exitOK)
	}

	args := flag.Args()
	if len(args) > 1 {
		flag.Usage()
		os.Exit(exitUsage)
	}

	if len(args) == 1 && !*interactive {
		path := args[0]
		switch {
		case *output != "":
			os.Exit(a.compileImage(path, *output))
		case strings.HasSuffix(path, image.Extension):
			os.Exit(a.runImage(path))
		default:
			os.Exit(a.runFile(path))
		}
	}

	r := newREPL(a, cfg.REPL.Prompt, cfg.History.Limit)
	if cfg.REPL.History && !*noHistory {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			log.Warningf("history disabled: %v", err)
		} else {
			defer store.Close()
			r.store = store
		}
	}
	r.run(os.Stdin)
}

// app holds the VM and output streams shared by every mode.
type app struct {
	vm          *bytecode.VM
	out         io.Writer
	errOut      io.Writer
	disassemble bool
	tracing     bool
}

func newApp(out, errOut io.Writer) *app {
	v := bytecode.NewVM()
	v.UseCompiler(compiler.Compile)
	return &app{vm: v, out: out, errOut: errOut}
}

func (a *app) setTrace(on bool) {
	a.tracing = on
	if on {
		a.vm.SetTracer(bytecode.NewWriterTracer(a.errOut))
	} else {
		a.vm.SetTracer(nil)
	}
}

// evaluate compiles and runs source, returning the formatted result.
func (a *app) evaluate(name, source string) (string, error) {
	chunk, err := compiler.Compile(source)
	if err != nil {
		return "", err
	}
	return a.execute(name, chunk)
}

func (a *app) execute(name string, chunk *bytecode.Chunk) (string, error) {
	if a.disassemble {
		bytecode.DisassembleChunk(a.errOut, chunk, name)
	}
	value, err := a.vm.Run(chunk)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// report prints an evaluation error and returns the matching exit code.
func (a *app) report(err error) int {
	fmt.Fprintln(a.errOut, err)
	switch bytecode.ResultOf(err) {
	case bytecode.InterpretRuntimeError:
		return exitRuntimeError
	default:
		return exitCompileError
	}
}

func (a *app) runFile(path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return exitIOError
	}
	result, err := a.evaluate(path, string(source))
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, result)
	return exitOK
}

func (a *app) runImage(path string) int {
	img, err := image.ReadFile(path)
	if err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return exitIOError
	}
	log.Debugf("running image %s (%x)", img.Name, img.Hash[:8])
	result, err := a.execute(img.Name, img.Chunk)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, result)
	return exitOK
}

func (a *app) compileImage(src, dst string) int {
	source, err := os.ReadFile(src)
	if err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return exitIOError
	}
	chunk, err := compiler.Compile(string(source))
	if err != nil {
		return a.report(err)
	}
	if a.disassemble {
		bytecode.DisassembleChunk(a.errOut, chunk, src)
	}
	img, err := image.New(src, string(source), chunk)
	if err == nil {
		err = image.WriteFile(dst, img)
	}
	if err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return exitIOError
	}
	log.Infof("wrote %s (%d bytes of code, %d constants)", dst, chunk.CodeLen(), chunk.ConstantCount())
	return exitOK
}
