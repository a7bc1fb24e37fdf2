// Package preview runs the command being edited and draws a bounded page of
// its output below the edit line, then puts the cursor back where the line
// editor expects it.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kk-code-lab/pipeline/internal/capture"
	"github.com/kk-code-lab/pipeline/internal/cursor"
	"github.com/kk-code-lab/pipeline/internal/render"
	"github.com/kk-code-lab/pipeline/internal/terminal"
	"github.com/kk-code-lab/pipeline/internal/textutil"
)

// Screen is the terminal the preview is drawn on.
type Screen interface {
	io.Writer
	Geometry() (terminal.Geometry, error)
	Apply(ops ...terminal.Op)
	Flush() error
}

// Redrawer repaints the edit line after the preview moved the cursor back
// to its first cell.
type Redrawer interface {
	ForceRedraw()
}

// Config is the preview configuration fixed at startup.
type Config struct {
	Shell    string
	Truncate bool
	// MaxLines caps the logical lines read from one stream. Zero is no cap.
	MaxLines int
	TabWidth int
	// Timeout bounds one preview. Zero waits for the command indefinitely.
	Timeout time.Duration
	Charset textutil.Charset
	Env     []string
	// CaptureLogger receives the child process records. Nil uses the
	// orchestrator's logger.
	CaptureLogger *slog.Logger
}

// Report describes one preview invocation.
type Report struct {
	ID       uuid.UUID
	Command  string
	Geometry terminal.Geometry
	Budget   render.Budget
	Result   render.Result
	Outcome  capture.Outcome
	Status   string
	Started  time.Time
	Duration time.Duration
}

// Orchestrator sequences one preview at a time.
type Orchestrator struct {
	cfg    Config
	screen Screen
	editor Redrawer
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	last    Report
	hasLast bool
}

func New(cfg Config, screen Screen, editor Redrawer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.TabWidth <= 0 {
		cfg.TabWidth = textutil.DefaultTabWidth
	}
	return &Orchestrator{
		cfg:    cfg,
		screen: screen,
		editor: editor,
		logger: logger,
		now:    time.Now,
	}
}

// HandleTrigger is the key handler bound in the line editor. A terminal whose
// size cannot be read aborts only this preview; the error is returned for
// spawn and stream failures, which end the program.
func (o *Orchestrator) HandleTrigger(text string, frame cursor.Frame) error {
	_, err := o.Preview(context.Background(), text, frame)
	var geoErr *terminal.GeometryError
	if errors.As(err, &geoErr) {
		o.logger.Warn("preview skipped", slog.Any("err", err))
		o.screen.Apply(terminal.Bell())
		return o.screen.Flush()
	}
	return err
}

// Preview runs command and draws its output. The cursor starts anywhere on
// the edit line described by frame and ends on its first cell.
func (o *Orchestrator) Preview(ctx context.Context, command string, frame cursor.Frame) (Report, error) {
	geom, err := o.screen.Geometry()
	if err != nil {
		return Report{}, err
	}

	ctx, done := o.begin(ctx)
	defer done()

	report := Report{
		ID:       uuid.New(),
		Command:  command,
		Geometry: geom,
		Budget: render.Budget{
			MaxRows:  cursor.RowBudget(frame, geom),
			Truncate: o.cfg.Truncate,
			LineCap:  o.cfg.MaxLines,
		},
		Started: o.now(),
	}
	logger := o.logger.With(slog.String("invocation", report.ID.String()))
	logger.Debug("preview",
		slog.String("command", command),
		slog.Int("rows", geom.Rows),
		slog.Int("cols", geom.Cols),
		slog.Int("max_rows", report.Budget.MaxRows),
	)

	o.screen.Apply(cursor.ToLineStart(frame, geom)...)
	o.screen.Apply(cursor.BelowEditLine(frame, geom)...)
	o.screen.Apply(terminal.ClearToEndOfScreen())
	if err := o.screen.Flush(); err != nil {
		return report, fmt.Errorf("write terminal: %w", err)
	}

	captureLogger := o.cfg.CaptureLogger
	if captureLogger == nil {
		captureLogger = o.logger
	}
	c := &capture.Capture{
		Shell:    o.cfg.Shell,
		Renderer: render.Renderer{Cols: geom.Cols, TabWidth: o.cfg.TabWidth},
		Charset:  o.cfg.Charset,
		Env:      o.cfg.Env,
		Logger:   captureLogger.With(slog.String("invocation", report.ID.String())),
	}
	res, outcome, err := c.Run(ctx, &page{screen: o.screen}, command, report.Budget)
	report.Result = res
	report.Outcome = outcome
	report.Duration = o.now().Sub(report.Started)
	if err != nil {
		return report, err
	}

	report.Status = StatusText(res, outcome)
	o.screen.Apply(terminal.EnterReverse())
	if _, err := io.WriteString(o.screen, StatusLine(report.Status, geom.Cols)); err != nil {
		return report, fmt.Errorf("write status: %w", err)
	}
	o.screen.Apply(terminal.ExitAttributes())
	o.screen.Apply(cursor.BackToLineStart(frame, geom, res.ScreenRowsUsed)...)
	if err := o.screen.Flush(); err != nil {
		return report, fmt.Errorf("write terminal: %w", err)
	}

	o.mu.Lock()
	o.last = report
	o.hasLast = true
	o.mu.Unlock()

	logger.Info("preview finished",
		slog.Int("exit_code", outcome.ExitCode),
		slog.String("stream", outcome.StreamUsed.String()),
		slog.Int("lines_total", res.LinesTotal),
		slog.Int("lines_shown", res.LinesShown),
		slog.Duration("duration", report.Duration),
	)

	if o.editor != nil {
		o.editor.ForceRedraw()
	}
	return report, nil
}

// Interrupt cancels the running preview. It reports false when none runs.
func (o *Orchestrator) Interrupt() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel == nil {
		return false
	}
	o.cancel()
	return true
}

// Last returns the report of the most recent completed preview.
func (o *Orchestrator) Last() (Report, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last, o.hasLast
}

func (o *Orchestrator) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	if o.cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, o.cfg.Timeout)
		inner := cancel
		cancel = func() {
			cancelTimeout()
			inner()
		}
	}
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
	return ctx, func() {
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
		cancel()
	}
}

// page draws capture output on the screen below the edit line.
type page struct {
	screen Screen
}

func (p *page) Write(b []byte) (int, error) {
	return p.screen.Write(b)
}

func (p *page) Flush() error {
	return p.screen.Flush()
}

// Erase clears rows rows of output above the cursor, which sits in column
// zero of the row after them.
func (p *page) Erase(rows int) error {
	p.screen.Apply(
		terminal.MoveUp(rows),
		terminal.ColumnZero(),
		terminal.ClearToEndOfScreen(),
	)
	return p.screen.Flush()
}
