package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/chazu/loxvm/history"
	"github.com/chazu/loxvm/pkg/bytecode"
)

type repl struct {
	app     *app
	prompt  string
	limit   int
	store   *history.Store // nil when history is off
	session string
}

func newREPL(a *app, prompt string, limit int) *repl {
	return &repl{
		app:     a,
		prompt:  prompt,
		limit:   limit,
		session: history.NewSession(),
	}
}

// run reads one expression per line until EOF or exit.
func (r *repl) run(in io.Reader) {
	out := r.app.out
	fmt.Fprintln(out, "loxvm REPL (type 'exit' to quit, ':help' for commands)")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, r.prompt)
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return
		case strings.HasPrefix(line, ":"):
			r.command(line)
		default:
			r.evalAndPrint(line)
		}
	}

	fmt.Fprintln(out)
}

// command handles REPL meta-commands
func (r *repl) command(cmd string) {
	out := r.app.out
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(out, "  :trace            Toggle execution tracing")
		fmt.Fprintln(out, "  :dis              Toggle disassembly before running")
		fmt.Fprintln(out, "  :history          Show recent evaluations")
		fmt.Fprintln(out, "  exit, quit        Exit REPL")
	case ":trace":
		r.app.setTrace(!r.app.tracing)
		fmt.Fprintf(out, "Tracing %s\n", onOff(r.app.tracing))
	case ":dis":
		r.app.disassemble = !r.app.disassemble
		fmt.Fprintf(out, "Disassembly %s\n", onOff(r.app.disassemble))
	case ":history":
		r.showHistory()
	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

func (r *repl) evalAndPrint(source string) {
	result, err := r.app.evaluate("repl", source)

	entry := history.Entry{Session: r.session, Source: source, Result: result, Status: history.StatusOK}
	if err != nil {
		fmt.Fprintln(r.app.errOut, err)
		entry.Result = err.Error()
		entry.Status = bytecode.ResultOf(err).String()
	} else {
		fmt.Fprintln(r.app.out, result)
	}

	if r.store != nil {
		if err := r.store.Record(context.Background(), entry); err != nil {
			log.Warningf("%v", err)
		}
	}
}

func (r *repl) showHistory() {
	out := r.app.out
	if r.store == nil {
		fmt.Fprintln(out, "History is disabled")
		return
	}

	entries, err := r.store.Recent(context.Background(), r.limit)
	if err != nil {
		fmt.Fprintf(r.app.errOut, "Error: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history yet")
		return
	}

	// Oldest first, like a shell.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		result := e.Result
		if e.Status != history.StatusOK {
			result = "<" + e.Status + ">"
		}
		fmt.Fprintf(out, "%5d  %-30s => %-12s %s\n", e.ID, e.Source, result, humanize.Time(e.CreatedAt))
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
