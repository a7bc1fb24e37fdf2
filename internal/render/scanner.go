package render

import (
	"bufio"
	"errors"
	"io"

	"github.com/kk-code-lab/pipeline/internal/textutil"
)

// Line is one logical line of output.
type Line struct {
	// Text is the part of the line that fits the budget. Empty when not shown.
	Text string
	// Rows is the number of screen rows Text uses.
	Rows int
	// Shown reports whether the line falls within the row budget.
	Shown bool
}

// Scanner reads logical lines lazily, in the manner of bufio.Scanner.
type Scanner struct {
	src      *bufio.Reader
	cols     int
	tabWidth int
	budget   Budget
	rowsLeft int
	line     Line
	res      Result
	err      error
	done     bool
	runes    []rune
}

func newScanner(src io.Reader, cols, tabWidth int, budget Budget) *Scanner {
	if cols < 1 {
		cols = 1
	}
	if tabWidth <= 0 {
		tabWidth = textutil.DefaultTabWidth
	}
	rowsLeft := budget.MaxRows
	if rowsLeft < 0 {
		rowsLeft = 0
	}
	return &Scanner{
		src:      bufio.NewReader(src),
		cols:     cols,
		tabWidth: tabWidth,
		budget:   budget,
		rowsLeft: rowsLeft,
	}
}

// Scan advances to the next logical line. It returns false at the end of the
// stream, on a read error or when the line cap is reached.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}
	if s.budget.LineCap > 0 && s.res.LinesTotal >= s.budget.LineCap {
		s.done = true
		if _, err := s.src.Peek(1); err == nil {
			s.res.TruncatedAtCap = true
		} else if !errors.Is(err, io.EOF) {
			s.err = err
		}
		return false
	}

	shown := s.rowsLeft > 0
	rowLimit := 0
	switch {
	case shown && s.budget.Truncate:
		rowLimit = 1
	case shown:
		rowLimit = s.rowsLeft
	}

	p := placement{cols: s.cols, rowLimit: rowLimit}
	ok, err := s.readLine(&p)
	if err != nil {
		s.err = err
		s.done = true
		return false
	}
	if !ok {
		s.done = true
		return false
	}

	s.res.LinesTotal++
	s.line = Line{Shown: shown}
	if shown {
		s.line.Text = string(s.runes)
		s.line.Rows = p.rows()
		s.rowsLeft -= s.line.Rows
		s.res.LinesShown++
		s.res.ScreenRowsUsed += s.line.Rows
	}
	return true
}

// readLine consumes one logical line, placing what fits. Runes past the
// budget are still consumed so the next line starts at the right place.
func (s *Scanner) readLine(p *placement) (bool, error) {
	s.runes = s.runes[:0]
	read := 0
	for {
		r, _, err := s.src.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return read > 0, nil
			}
			return false, err
		}
		read++
		if r == '\n' {
			return true, nil
		}
		if p.stopped || p.rowLimit == 0 {
			continue
		}
		switch {
		case r == '\r':
			if next, err := s.src.Peek(1); err == nil && next[0] == '\n' {
				continue
			}
			s.runes = p.place(s.runes, '?', 1)
		case r == '\t':
			for n := textutil.TabSpaces(p.col, s.tabWidth); n > 0; n-- {
				s.runes = p.place(s.runes, ' ', 1)
			}
		default:
			if repl, ok := textutil.Replacement(r); ok {
				s.runes = p.placeText(s.runes, repl)
				continue
			}
			s.runes = p.place(s.runes, r, textutil.RuneWidth(r))
		}
	}
}

// Line returns the line produced by the last call to Scan.
func (s *Scanner) Line() Line {
	return s.line
}

// Err returns the first read error.
func (s *Scanner) Err() error {
	return s.err
}

// Result returns the totals accumulated so far.
func (s *Scanner) Result() Result {
	return s.res
}
