// Package capture runs a command under a shell and drains its stdout and
// stderr at the same time. Reading one pipe to the end before touching the
// other deadlocks as soon as the child fills the unread pipe's buffer.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"
	"unicode/utf8"

	"github.com/kk-code-lab/pipeline/internal/render"
	"github.com/kk-code-lab/pipeline/internal/textutil"
	"golang.org/x/sync/errgroup"
)

// Page is the part of the terminal the output is drawn on.
type Page interface {
	io.Writer
	// Erase clears the rows drawn so far and returns to their first row.
	Erase(rows int) error
}

// Capture runs one previewed command.
type Capture struct {
	Shell    string
	Renderer render.Renderer
	Charset  textutil.Charset
	// Env is the child's environment; nil inherits ours.
	Env    []string
	Logger *slog.Logger
}

// Run executes "Shell -c command", drawing stdout onto page while stderr is
// spooled. When the command fails the stdout page is erased and stderr is
// drawn in its place with the same budget. The child is always reaped.
func (c *Capture) Run(ctx context.Context, page Page, command string, budget render.Budget) (render.Result, Outcome, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return render.Result{}, Outcome{}, &SpawnError{Shell: c.Shell, Err: err}
	}
	defer func() {
		_ = stdoutR.Close()
	}()
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdoutW.Close()
		return render.Result{}, Outcome{}, &SpawnError{Shell: c.Shell, Err: err}
	}
	defer func() {
		_ = stderrR.Close()
	}()

	cmd := exec.Command(c.Shell, "-c", command)
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.Env = c.Env
	isolate(cmd)

	err = cmd.Start()
	_ = stdoutW.Close()
	_ = stderrW.Close()
	if err != nil {
		return render.Result{}, Outcome{}, &SpawnError{Shell: c.Shell, Err: err}
	}
	logger.Debug("started", slog.Int("pid", cmd.Process.Pid), slog.Int("max_rows", budget.MaxRows))

	var (
		killed       atomic.Bool
		ctxKilled    atomic.Bool
		stdoutCapped atomic.Bool
		stdoutRes    render.Result
	)
	kill := func() {
		if killed.CompareAndSwap(false, true) {
			if err := killGroup(cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
				logger.Warn("kill failed", slog.Any("err", err))
			}
		}
	}
	// Runs at once when ctx is already done, so a cancel racing the start
	// still ends the child.
	stop := context.AfterFunc(ctx, func() {
		ctxKilled.Store(true)
		kill()
	})
	defer stop()

	errSpool := newSpool(budget.MaxRows, c.lineBytes(budget))

	var g errgroup.Group
	g.Go(func() error {
		res, err := c.Renderer.Render(page, c.Charset.NewReader(stdoutR), budget)
		stdoutRes = res
		if err != nil {
			kill()
			return &StreamError{Stream: Stdout, Err: err}
		}
		if res.TruncatedAtCap {
			stdoutCapped.Store(true)
			// Writers now get EPIPE; the kill covers those that ignore it.
			_ = stdoutR.Close()
			kill()
		}
		return nil
	})
	g.Go(func() error {
		// Drained to EOF; only the stdout cap, ctx or the child's exit end it.
		if _, err := errSpool.ReadFrom(c.Charset.NewReader(stderrR)); err != nil {
			kill()
			return &StreamError{Stream: Stderr, Err: err}
		}
		return nil
	})

	drainErr := g.Wait()
	waitErr := cmd.Wait()
	stop()
	if drainErr != nil {
		return stdoutRes, Outcome{}, drainErr
	}
	if cmd.ProcessState == nil {
		return stdoutRes, Outcome{}, &SpawnError{Shell: c.Shell, Err: fmt.Errorf("wait: %w", waitErr)}
	}

	outcome := outcomeFromState(cmd.ProcessState)
	if ctxKilled.Load() {
		switch ctxErr := ctx.Err(); {
		case errors.Is(ctxErr, context.DeadlineExceeded):
			outcome.TimedOut = true
		case errors.Is(ctxErr, context.Canceled):
			outcome.Interrupted = true
		}
	}
	outcome.Capped = stdoutCapped.Load()

	switch {
	case outcome.ExitCode == 0 && !outcome.Signaled:
		outcome.StreamUsed = Stdout
	case stdoutCapped.Load() && !outcome.TimedOut && !outcome.Interrupted:
		// We closed stdout and killed the child ourselves; the broken pipe
		// or kill is not the command's failure.
		outcome.StreamUsed = Stdout
	default:
		outcome.StreamUsed = Stderr
	}
	logger.Debug("finished",
		slog.Int("exit_code", outcome.ExitCode),
		slog.Bool("signaled", outcome.Signaled),
		slog.String("stream", outcome.StreamUsed.String()),
		slog.Int("stdout_lines", stdoutRes.LinesTotal),
		slog.Int("stderr_lines", errSpool.total),
	)

	if outcome.StreamUsed == Stdout {
		return stdoutRes, outcome, nil
	}

	if err := page.Erase(stdoutRes.ScreenRowsUsed); err != nil {
		return stdoutRes, outcome, fmt.Errorf("erase output: %w", err)
	}
	errRes, err := c.Renderer.Render(page, errSpool.Reader(), render.Budget{
		MaxRows:  budget.MaxRows,
		Truncate: budget.Truncate,
	})
	if err != nil {
		return errRes, outcome, &StreamError{Stream: Stderr, Err: err}
	}
	errRes.LinesTotal = errSpool.total
	return errRes, outcome, nil
}

// lineBytes bounds how much of one stderr line is kept: enough to fill every
// row of the page with the widest possible encoding.
func (c *Capture) lineBytes(budget render.Budget) int {
	cols := c.Renderer.Cols
	if cols < 1 {
		cols = 1
	}
	rows := budget.MaxRows
	if budget.Truncate || rows < 1 {
		rows = 1
	}
	return cols * rows * utf8.UTFMax
}
