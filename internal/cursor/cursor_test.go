package cursor

import (
	"reflect"
	"testing"

	"github.com/kk-code-lab/pipeline/internal/terminal"
)

var screen = terminal.Geometry{Rows: 24, Cols: 80}

func TestEditLineRows(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		cols  int
		want  int
	}{
		{"empty buffer", Frame{PromptWidth: 10}, 80, 1},
		{"fits", Frame{PromptWidth: 10, BufferLength: 20}, 80, 1},
		{"exactly full reserves cursor row", Frame{PromptWidth: 10, BufferLength: 70}, 80, 2},
		{"one short of full", Frame{PromptWidth: 10, BufferLength: 69}, 80, 1},
		{"three rows", Frame{PromptWidth: 10, BufferLength: 200}, 80, 3},
		{"zero columns treated as one", Frame{PromptWidth: 2, BufferLength: 1}, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EditLineRows(tt.frame, terminal.Geometry{Rows: 24, Cols: tt.cols})
			if got != tt.want {
				t.Fatalf("EditLineRows = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRowBudget(t *testing.T) {
	if got := RowBudget(Frame{PromptWidth: 10, BufferLength: 5}, screen); got != 22 {
		t.Fatalf("RowBudget = %d, want 22", got)
	}
	tiny := terminal.Geometry{Rows: 2, Cols: 10}
	if got := RowBudget(Frame{PromptWidth: 10, BufferLength: 30}, tiny); got != 0 {
		t.Fatalf("RowBudget on tiny terminal = %d, want 0", got)
	}
}

func TestToLineStart(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  []terminal.Op
	}{
		{"cursor at line start", Frame{PromptWidth: 0, CursorOffset: 0}, nil},
		{"same row", Frame{PromptWidth: 10, CursorOffset: 5}, []terminal.Op{terminal.MoveLeft(15)}},
		{"second row", Frame{PromptWidth: 10, BufferLength: 100, CursorOffset: 75}, []terminal.Op{terminal.MoveUp(1), terminal.MoveLeft(5)}},
		{"row boundary", Frame{PromptWidth: 10, BufferLength: 100, CursorOffset: 70}, []terminal.Op{terminal.MoveUp(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToLineStart(tt.frame, screen)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ToLineStart = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBelowEditLineAndBack(t *testing.T) {
	frame := Frame{PromptWidth: 10, BufferLength: 150, CursorOffset: 3}
	below := BelowEditLine(frame, screen)
	if len(below) != 3 {
		t.Fatalf("BelowEditLine emitted %d newlines, want 3", len(below))
	}
	back := BackToLineStart(frame, screen, 7)
	want := []terminal.Op{terminal.ColumnZero(), terminal.MoveUp(10)}
	if !reflect.DeepEqual(back, want) {
		t.Fatalf("BackToLineStart = %+v, want %+v", back, want)
	}
}

func TestMove(t *testing.T) {
	got := Move(Position{Row: 2, Col: 5}, Position{Row: 0, Col: 12})
	want := []terminal.Op{terminal.MoveUp(2), terminal.ColumnZero(), terminal.MoveRight(12)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Move up = %+v, want %+v", got, want)
	}
	got = Move(Position{Row: 0, Col: 5}, Position{Row: 1, Col: 0})
	want = []terminal.Op{terminal.MoveDown(1), terminal.ColumnZero()}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Move down = %+v, want %+v", got, want)
	}
}

func TestClearRows(t *testing.T) {
	got := ClearRows(Position{Row: 1, Col: 4}, 2)
	want := []terminal.Op{
		terminal.MoveUp(1), terminal.ColumnZero(),
		terminal.ClearToEndOfLine(), terminal.MoveDown(1),
		terminal.ClearToEndOfLine(), terminal.MoveUp(1),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ClearRows = %+v, want %+v", got, want)
	}
}

// vt tracks the cursor of a terminal tall enough never to scroll.
type vt struct {
	row, col, cols int
}

func (v *vt) apply(ops ...terminal.Op) {
	for _, op := range ops {
		switch op.Kind {
		case terminal.OpMoveUp:
			v.row -= op.N
			if v.row < 0 {
				v.row = 0
			}
		case terminal.OpMoveDown:
			v.row += op.N
		case terminal.OpMoveLeft:
			v.col -= op.N
			if v.col < 0 {
				v.col = 0
			}
		case terminal.OpMoveRight:
			v.col += op.N
			if v.col > v.cols-1 {
				v.col = v.cols - 1
			}
		case terminal.OpColumnZero:
			v.col = 0
		case terminal.OpNewline:
			v.row++
			v.col = 0
		}
	}
}

func TestPreviewRoundTripIsIdempotent(t *testing.T) {
	frames := []Frame{
		{PromptWidth: 10, BufferLength: 0, CursorOffset: 0},
		{PromptWidth: 10, BufferLength: 69, CursorOffset: 69},
		{PromptWidth: 10, BufferLength: 70, CursorOffset: 70},
		{PromptWidth: 10, BufferLength: 200, CursorOffset: 123},
	}
	for _, frame := range frames {
		for _, shown := range []int{0, 1, RowBudget(frame, screen)} {
			const origin = 5
			start := At(frame.PromptWidth+frame.CursorOffset, screen.Cols)
			v := &vt{row: origin + start.Row, col: start.Col, cols: screen.Cols}

			for run := 0; run < 2; run++ {
				v.apply(ToLineStart(frame, screen)...)
				if v.row != origin || v.col != 0 {
					t.Fatalf("frame %+v run %d: line start at %d,%d", frame, run, v.row, v.col)
				}
				v.apply(BelowEditLine(frame, screen)...)
				v.row += shown
				v.apply(BackToLineStart(frame, screen, shown)...)
				if v.row != origin || v.col != 0 {
					t.Fatalf("frame %+v shown %d run %d: returned to %d,%d", frame, shown, run, v.row, v.col)
				}
				v.apply(Move(Position{}, start)...)
			}
		}
	}
}
