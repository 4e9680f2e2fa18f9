package maincmd_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loxscript/loxvm/internal/maincmd"
	"github.com/loxscript/loxvm/lang/heap"
	"github.com/loxscript/loxvm/lang/vm"
	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainRunsFileSuccessfully(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.lox")
	require.NoError(t, os.WriteFile(path, []byte(`print 1 + 2;`), 0o644))

	var out, errOut bytes.Buffer
	c := maincmd.Cmd{}
	code := c.Main([]string{"loxvm", path}, mainer.Stdio{
		Stdin:  strings.NewReader(""),
		Stdout: &out,
		Stderr: &errOut,
	})

	assert.Equal(t, mainer.ExitCode(0), code)
	assert.Equal(t, "3\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestMainCompileErrorExits65(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.lox")
	require.NoError(t, os.WriteFile(path, []byte(`val x = 1; x = 2;`), 0o644))

	var out, errOut bytes.Buffer
	c := maincmd.Cmd{}
	code := c.Main([]string{"loxvm", path}, mainer.Stdio{
		Stdin:  strings.NewReader(""),
		Stdout: &out,
		Stderr: &errOut,
	})

	assert.Equal(t, mainer.ExitCode(65), code)
	assert.Contains(t, errOut.String(), "Cannot assign to a val variable.")
}

func TestMainRuntimeErrorExits70(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.lox")
	require.NoError(t, os.WriteFile(path, []byte(`print 1 + nil;`), 0o644))

	var out, errOut bytes.Buffer
	c := maincmd.Cmd{}
	code := c.Main([]string{"loxvm", path}, mainer.Stdio{
		Stdin:  strings.NewReader(""),
		Stdout: &out,
		Stderr: &errOut,
	})

	assert.Equal(t, mainer.ExitCode(70), code)
}

func TestMainMissingFileExits74(t *testing.T) {
	var out, errOut bytes.Buffer
	c := maincmd.Cmd{}
	code := c.Main([]string{"loxvm", filepath.Join(t.TempDir(), "nope.lox")}, mainer.Stdio{
		Stdin:  strings.NewReader(""),
		Stdout: &out,
		Stderr: &errOut,
	})

	assert.Equal(t, mainer.ExitCode(74), code)
}

func TestMainTooManyArgsExits64(t *testing.T) {
	var out, errOut bytes.Buffer
	c := maincmd.Cmd{}
	code := c.Main([]string{"loxvm", "a.lox", "b.lox"}, mainer.Stdio{
		Stdin:  strings.NewReader(""),
		Stdout: &out,
		Stderr: &errOut,
	})

	assert.Equal(t, mainer.ExitCode(64), code)
}

func TestRunREPLStopsOnExitLine(t *testing.T) {
	h := heap.New()
	m := vm.New(h)
	var out bytes.Buffer
	m.Stdout = &out

	stdio := mainer.Stdio{
		Stdin:  strings.NewReader("print 1;\nexit\nprint 2;\n"),
		Stdout: &out,
		Stderr: &out,
	}
	maincmd.RunREPL(context.Background(), m, stdio)

	assert.Contains(t, out.String(), "1\n")
	assert.NotContains(t, out.String(), "2\n")
}

// Each REPL line compiles against the same long-lived heap; fifty lines in a
// row must all run, up to and including the last one.
func TestRunREPLRunsManyLinesOnSharedHeap(t *testing.T) {
	h := heap.New()
	m := vm.New(h)
	var out bytes.Buffer
	m.Stdout = &out

	var lines strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&lines, "print %d;\n", i)
	}
	stdio := mainer.Stdio{
		Stdin:  strings.NewReader(lines.String()),
		Stdout: &out,
		Stderr: &out,
	}
	maincmd.RunREPL(context.Background(), m, stdio)

	assert.Contains(t, out.String(), "49\n")
}

func TestRunREPLReportsErrorsWithoutStopping(t *testing.T) {
	h := heap.New()
	m := vm.New(h)
	var out bytes.Buffer
	var errOut bytes.Buffer
	m.Stdout = &out

	stdio := mainer.Stdio{
		Stdin:  strings.NewReader("print nope;\nprint 9;\n"),
		Stdout: &out,
		Stderr: &errOut,
	}
	maincmd.RunREPL(context.Background(), m, stdio)

	assert.Contains(t, errOut.String(), "Undefined variable 'nope'.")
	assert.Contains(t, out.String(), "9\n")
}
