// Package cursor computes the moves that take the terminal cursor between the
// edit line and the preview drawn below it. Every result must match what the
// terminal actually did: a single row of drift leaves stale output on screen
// or lets the prompt overwrite the preview.
package cursor

import "github.com/kk-code-lab/pipeline/internal/terminal"

// Frame is a snapshot of the edit line's geometry, in display columns.
type Frame struct {
	PromptWidth  int
	BufferLength int
	CursorOffset int
}

// Position is a cell relative to the first cell of the edit line.
type Position struct {
	Row int
	Col int
}

// At converts a column offset from the start of the edit line into a position.
func At(offset, cols int) Position {
	cols = clampCols(cols)
	if offset < 0 {
		offset = 0
	}
	return Position{Row: offset / cols, Col: offset % cols}
}

// EditLineRows is the number of screen rows the edit line occupies. The extra
// column leaves room for the cursor sitting right after the last character.
func EditLineRows(f Frame, g terminal.Geometry) int {
	return ceilDiv(f.PromptWidth+f.BufferLength+1, clampCols(g.Cols))
}

// RowBudget is the number of rows left for preview output once the edit
// line and the status line are accounted for.
func RowBudget(f Frame, g terminal.Geometry) int {
	budget := g.Rows - (EditLineRows(f, g) + 1)
	if budget < 0 {
		return 0
	}
	return budget
}

// ToLineStart moves from the cursor's current cell, which may be mid-line, to
// the first cell of the edit line.
func ToLineStart(f Frame, g terminal.Geometry) []terminal.Op {
	pos := At(f.PromptWidth+f.CursorOffset, g.Cols)
	var ops []terminal.Op
	if pos.Row > 0 {
		ops = append(ops, terminal.MoveUp(pos.Row))
	}
	if pos.Col > 0 {
		ops = append(ops, terminal.MoveLeft(pos.Col))
	}
	return ops
}

// BelowEditLine moves from the start of the edit line to column zero of the
// row after it. Newlines are used rather than cursor-down because the edit
// line may sit on the last row and the screen has to scroll.
func BelowEditLine(f Frame, g terminal.Geometry) []terminal.Op {
	rows := EditLineRows(f, g)
	ops := make([]terminal.Op, 0, rows)
	for i := 0; i < rows; i++ {
		ops = append(ops, terminal.Newline())
	}
	return ops
}

// BackToLineStart returns from the status line, which follows screenRowsUsed
// rows of output, to the first cell of the edit line.
func BackToLineStart(f Frame, g terminal.Geometry, screenRowsUsed int) []terminal.Op {
	return []terminal.Op{
		terminal.ColumnZero(),
		terminal.MoveUp(screenRowsUsed + EditLineRows(f, g)),
	}
}

// Move goes from one edit-line position to another.
func Move(from, to Position) []terminal.Op {
	var ops []terminal.Op
	switch {
	case to.Row < from.Row:
		ops = append(ops, terminal.MoveUp(from.Row-to.Row))
	case to.Row > from.Row:
		ops = append(ops, terminal.MoveDown(to.Row-from.Row))
	}
	ops = append(ops, terminal.ColumnZero())
	if to.Col > 0 {
		ops = append(ops, terminal.MoveRight(to.Col))
	}
	return ops
}

// ClearRows blanks rows screen rows of the edit line starting from the
// current position and leaves the cursor on the first cell of the line.
func ClearRows(from Position, rows int) []terminal.Op {
	if rows < 1 {
		rows = 1
	}
	ops := []terminal.Op{terminal.MoveUp(from.Row), terminal.ColumnZero()}
	for i := 0; i < rows; i++ {
		ops = append(ops, terminal.ClearToEndOfLine())
		if i < rows-1 {
			ops = append(ops, terminal.MoveDown(1))
		}
	}
	if rows > 1 {
		ops = append(ops, terminal.MoveUp(rows-1))
	}
	return ops
}

func clampCols(cols int) int {
	if cols < 1 {
		return 1
	}
	return cols
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
