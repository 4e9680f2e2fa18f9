// Package maincmd implements the loxvm command line: flag parsing, REPL
// loop, and single-file execution, independent of os.Args/os.Exit so it can
// be driven from tests via mainer.Stdio.
package maincmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/loxscript/loxvm/lang/heap"
	"github.com/loxscript/loxvm/lang/vm"
	"github.com/mna/mainer"
)

const binName = "loxvm"

var (
	shortUsage = fmt.Sprintf("usage: %s [<path>]\nRun '%[1]s --help' for details.\n", binName)

	longUsage = fmt.Sprintf(`usage: %s [<path>]
       %[1]s -h|--help
       %[1]s -v|--version

Bytecode interpreter for the loxvm scripting language.

With no <path>, starts an interactive REPL: each line is compiled and run
on its own, sharing globals and heap state with every prior line. Type
"exit" or send EOF (Ctrl-D) to quit. Errors in a REPL line are reported but
do not end the session.

With <path>, reads and interprets the whole file once.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
`, binName)
)

// Exit codes follow the CLI's documented contract: 0 on success, 65 on a
// compile error, 70 on a runtime error, 74 on an I/O error reading the
// script file, 64 on invalid usage.
const (
	exitSuccess  mainer.ExitCode = 0
	exitDataErr  mainer.ExitCode = 65
	exitSoftware mainer.ExitCode = 70
	exitIOErr    mainer.ExitCode = 74
	exitUsage    mainer.ExitCode = 64
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args []string
}

func (c *Cmd) SetArgs(args []string)      { c.args = args }
func (c *Cmd) SetFlags(_ map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) > 1 {
		return errors.New("too many arguments")
	}
	return nil
}

// Main parses args, dispatches to the REPL or single-file runner, and
// returns a process exit code, keeping os.Exit at the edge in
// cmd/loxvm/main.go rather than deep in this package.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: strings.ToUpper(binName) + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return exitUsage
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return exitSuccess
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return exitSuccess
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	h := heap.New()
	m := vm.New(h)
	m.Stdout = stdio.Stdout

	if len(c.args) == 0 {
		RunREPL(ctx, m, stdio)
		return exitSuccess
	}
	return RunFile(ctx, m, stdio, c.args[0])
}

// RunREPL reads lines from stdio.Stdin until EOF or a line starting with
// "exit", interpreting each independently. A reported error ends that line
// but not the session.
func RunREPL(ctx context.Context, m *vm.VM, stdio mainer.Stdio) {
	sc := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if !sc.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return
		}
		line := sc.Text()
		if strings.HasPrefix(line, "exit") {
			return
		}
		if err := m.Interpret(ctx, line); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
		}
	}
}

// RunFile reads path and interprets it once, mapping the outcome to the
// documented exit codes.
func RunFile(ctx context.Context, m *vm.VM, stdio mainer.Stdio, path string) mainer.ExitCode {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitIOErr
	}

	err = m.Interpret(ctx, string(src))
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stdio.Stderr, err)

	var cerr *vm.CompileError
	if errors.As(err, &cerr) {
		return exitDataErr
	}
	var rerr *vm.RuntimeError
	if errors.As(err, &rerr) {
		return exitSoftware
	}
	return exitSoftware
}
