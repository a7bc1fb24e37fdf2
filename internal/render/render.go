// Package render turns a child's output stream into a bounded page of screen
// rows. Lines are measured in display columns, never bytes, because the row
// count it reports drives the cursor recovery after the page is drawn.
package render

import (
	"fmt"
	"io"

	"github.com/kk-code-lab/pipeline/internal/textutil"
)

// Budget bounds one rendering pass.
type Budget struct {
	// MaxRows is the number of screen rows output may use. Zero still drains
	// and counts the stream.
	MaxRows int
	// Truncate clips long lines at the right margin instead of wrapping.
	Truncate bool
	// LineCap stops reading after this many logical lines. Zero means no cap.
	LineCap int
}

// Result summarises a rendering pass.
type Result struct {
	LinesShown     int
	ScreenRowsUsed int
	LinesTotal     int
	TruncatedAtCap bool
}

// Renderer renders streams for a terminal Cols columns wide.
type Renderer struct {
	Cols     int
	TabWidth int
}

// Scanner returns a lazy line scanner over src.
func (r Renderer) Scanner(src io.Reader, budget Budget) *Scanner {
	return newScanner(src, r.Cols, r.TabWidth, budget)
}

// Render draws the shown lines of src to w, one newline-terminated screen
// line each, and keeps reading past the budget so the totals are exact.
func (r Renderer) Render(w io.Writer, src io.Reader, budget Budget) (Result, error) {
	s := r.Scanner(src, budget)
	for s.Scan() {
		line := s.Line()
		if !line.Shown {
			continue
		}
		if _, err := io.WriteString(w, line.Text+"\n"); err != nil {
			return s.Result(), fmt.Errorf("write output: %w", err)
		}
		if err := flush(w); err != nil {
			return s.Result(), fmt.Errorf("write output: %w", err)
		}
	}
	if err := s.Err(); err != nil {
		return s.Result(), fmt.Errorf("read output: %w", err)
	}
	return s.Result(), nil
}

func flush(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// placement follows where the terminal puts each cell of one logical line.
type placement struct {
	cols     int
	rowLimit int
	row      int
	col      int
	stopped  bool
}

// place appends r if it fits within the row limit. Once a rune does not fit,
// nothing more is placed on this line, so a wide rune is never half drawn.
func (p *placement) place(out []rune, r rune, width int) []rune {
	if p.stopped {
		return out
	}
	if p.rowLimit <= 0 {
		p.stopped = true
		return out
	}
	if width == 0 {
		return append(out, r)
	}
	if p.row == 0 {
		p.row = 1
	}
	if p.col+width > p.cols {
		// A rune that straddles the margin starts the next row.
		if width > p.cols || p.row+1 > p.rowLimit {
			p.stopped = true
			return out
		}
		p.row++
		p.col = 0
	}
	p.col += width
	return append(out, r)
}

func (p *placement) placeText(out []rune, text string) []rune {
	for _, r := range text {
		out = p.place(out, r, textutil.RuneWidth(r))
	}
	return out
}

// rows is the number of screen rows the line uses once its newline is
// written. An empty line still moves the cursor down one row.
func (p *placement) rows() int {
	if p.row == 0 {
		return 1
	}
	return p.row
}
