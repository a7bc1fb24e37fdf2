package preview

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kk-code-lab/pipeline/internal/capture"
	"github.com/kk-code-lab/pipeline/internal/cursor"
	"github.com/kk-code-lab/pipeline/internal/terminal"
)

type fakeScreen struct {
	mu      sync.Mutex
	out     bytes.Buffer
	ops     []terminal.Op
	geom    terminal.Geometry
	geomErr error
	caps    terminal.Caps
}

func newFakeScreen(rows, cols int) *fakeScreen {
	return &fakeScreen{
		geom: terminal.Geometry{Rows: rows, Cols: cols},
		caps: terminal.ANSICaps(),
	}
}

func (s *fakeScreen) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Write(p)
}

func (s *fakeScreen) Geometry() (terminal.Geometry, error) {
	if s.geomErr != nil {
		return terminal.Geometry{}, s.geomErr
	}
	return s.geom, nil
}

func (s *fakeScreen) Apply(ops ...terminal.Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, ops...)
	s.caps.Apply(&s.out, ops...)
}

func (s *fakeScreen) Flush() error { return nil }

func (s *fakeScreen) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.String()
}

func (s *fakeScreen) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.Reset()
	s.ops = nil
}

type fakeEditor struct {
	redraws int
}

func (e *fakeEditor) ForceRedraw() { e.redraws++ }

func newTestOrchestrator(cfg Config, screen Screen, editor Redrawer) *Orchestrator {
	if cfg.Shell == "" {
		cfg.Shell = "/bin/sh"
	}
	return New(cfg, screen, editor, nil)
}

var shortFrame = cursor.Frame{PromptWidth: 10, BufferLength: 7, CursorOffset: 7}

func TestPreviewEchoHi(t *testing.T) {
	screen := newFakeScreen(24, 80)
	editor := &fakeEditor{}
	o := newTestOrchestrator(Config{}, screen, editor)

	report, err := o.Preview(context.Background(), "echo hi", shortFrame)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if strings.TrimSpace(report.Status) != "1 total lines, showing 1" {
		t.Fatalf("status = %q", report.Status)
	}
	if report.Budget.MaxRows != 22 {
		t.Fatalf("budget = %+v, want 22 rows", report.Budget)
	}
	if !strings.Contains(screen.String(), "\x1b[Jhi\n") {
		t.Fatalf("output line missing from screen: %q", screen.String())
	}
	if editor.redraws != 1 {
		t.Fatalf("redraws = %d, want 1", editor.redraws)
	}
	last, ok := o.Last()
	if !ok || last.ID != report.ID {
		t.Fatalf("Last() = %+v, %v", last, ok)
	}
}

func TestPreviewFalseShowsError(t *testing.T) {
	screen := newFakeScreen(24, 80)
	o := newTestOrchestrator(Config{}, screen, &fakeEditor{})

	report, err := o.Preview(context.Background(), "false", shortFrame)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if strings.TrimSpace(report.Status) != "error in command: 1" {
		t.Fatalf("status = %q", report.Status)
	}
	if report.Result.LinesShown != 0 || report.Outcome.StreamUsed != capture.Stderr {
		t.Fatalf("report = %+v", report)
	}
}

func TestPreviewCursorSequence(t *testing.T) {
	screen := newFakeScreen(24, 80)
	o := newTestOrchestrator(Config{}, screen, &fakeEditor{})
	frame := cursor.Frame{PromptWidth: 10, BufferLength: 7, CursorOffset: 3}

	if _, err := o.Preview(context.Background(), "echo hi", frame); err != nil {
		t.Fatalf("Preview: %v", err)
	}
	want := []terminal.Op{
		terminal.MoveLeft(13),
		terminal.Newline(),
		terminal.ClearToEndOfScreen(),
		terminal.EnterReverse(),
		terminal.ExitAttributes(),
		terminal.ColumnZero(),
		terminal.MoveUp(2),
	}
	if len(screen.ops) != len(want) {
		t.Fatalf("ops = %+v, want %+v", screen.ops, want)
	}
	for i := range want {
		if screen.ops[i] != want[i] {
			t.Fatalf("op %d = %+v, want %+v", i, screen.ops[i], want[i])
		}
	}
}

func TestPreviewWrappedEditLine(t *testing.T) {
	screen := newFakeScreen(10, 20)
	o := newTestOrchestrator(Config{}, screen, &fakeEditor{})
	// 10 + 35 + 1 columns span three rows of 20.
	frame := cursor.Frame{PromptWidth: 10, BufferLength: 35, CursorOffset: 35}

	report, err := o.Preview(context.Background(), "seq 1 100", frame)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if report.Budget.MaxRows != 6 || report.Result.ScreenRowsUsed != 6 {
		t.Fatalf("report = %+v", report)
	}
	last := screen.ops[len(screen.ops)-1]
	if last != terminal.MoveUp(9) {
		t.Fatalf("final op = %+v, want MoveUp(9)", last)
	}
}

func TestPreviewRepeatIsIdentical(t *testing.T) {
	screen := newFakeScreen(24, 80)
	o := newTestOrchestrator(Config{}, screen, &fakeEditor{})

	if _, err := o.Preview(context.Background(), "printf 'a\\nb\\n'", shortFrame); err != nil {
		t.Fatalf("first Preview: %v", err)
	}
	first := screen.String()
	screen.reset()
	if _, err := o.Preview(context.Background(), "printf 'a\\nb\\n'", shortFrame); err != nil {
		t.Fatalf("second Preview: %v", err)
	}
	if second := screen.String(); second != first {
		t.Fatalf("second preview drew %q, first drew %q", second, first)
	}
}

func TestPreviewFailureErasesStdoutPage(t *testing.T) {
	screen := newFakeScreen(24, 80)
	o := newTestOrchestrator(Config{}, screen, &fakeEditor{})

	report, err := o.Preview(context.Background(), "echo out; echo bad >&2; exit 4", shortFrame)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if report.Outcome.ExitCode != 4 || report.Result.ScreenRowsUsed != 1 {
		t.Fatalf("report = %+v", report)
	}
	out := screen.String()
	if !strings.Contains(out, "out\n\x1b[A\r\x1b[Jbad\n") {
		t.Fatalf("stdout page not erased before stderr: %q", out)
	}
}

func TestHandleTriggerGeometryErrorRingsBell(t *testing.T) {
	screen := newFakeScreen(24, 80)
	screen.geomErr = &terminal.GeometryError{Err: errors.New("not a tty")}
	editor := &fakeEditor{}
	o := newTestOrchestrator(Config{}, screen, editor)

	if err := o.HandleTrigger("echo hi", shortFrame); err != nil {
		t.Fatalf("HandleTrigger: %v", err)
	}
	if len(screen.ops) != 1 || screen.ops[0] != terminal.Bell() {
		t.Fatalf("ops = %+v, want a single bell", screen.ops)
	}
	if editor.redraws != 0 {
		t.Fatalf("editor redrawn after aborted preview")
	}
	if _, ok := o.Last(); ok {
		t.Fatalf("aborted preview recorded as last")
	}
}

func TestHandleTriggerSpawnErrorIsFatal(t *testing.T) {
	screen := newFakeScreen(24, 80)
	o := newTestOrchestrator(Config{Shell: "/nonexistent/sh-xyz"}, screen, &fakeEditor{})

	err := o.HandleTrigger("echo hi", shortFrame)
	var spawnErr *capture.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected SpawnError, got %v", err)
	}
}

func TestPreviewTimeout(t *testing.T) {
	screen := newFakeScreen(24, 80)
	o := newTestOrchestrator(Config{Timeout: 100 * time.Millisecond}, screen, &fakeEditor{})

	report, err := o.Preview(context.Background(), "sleep 30", shortFrame)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !report.Outcome.TimedOut || !strings.Contains(report.Status, "(timed out)") {
		t.Fatalf("report = %+v", report)
	}
	if report.Duration > 10*time.Second {
		t.Fatalf("timeout not enforced, took %v", report.Duration)
	}
}

func TestInterrupt(t *testing.T) {
	screen := newFakeScreen(24, 80)
	o := newTestOrchestrator(Config{}, screen, &fakeEditor{})

	if o.Interrupt() {
		t.Fatalf("Interrupt reported a preview while idle")
	}

	type result struct {
		report Report
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := o.Preview(context.Background(), "sleep 30", shortFrame)
		done <- result{report, err}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !o.Interrupt() {
		if time.Now().After(deadline) {
			t.Fatal("preview never became interruptible")
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Preview: %v", res.err)
		}
		if !res.report.Outcome.Interrupted || !strings.Contains(res.report.Status, "(interrupted)") {
			t.Fatalf("report = %+v", res.report)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("interrupted preview did not return")
	}
}
