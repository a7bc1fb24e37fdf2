package terminal

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// Geometry is the size of the terminal in character cells.
type Geometry struct {
	Rows int
	Cols int
}

// GeometryError reports that the terminal size could not be queried, usually
// because the file is not a terminal.
type GeometryError struct {
	Err error
}

func (e *GeometryError) Error() string {
	return "query terminal size: " + e.Err.Error()
}

func (e *GeometryError) Unwrap() error {
	return e.Err
}

// QueryGeometry asks the terminal behind f for its current size. The result
// must not be cached: the window may be resized between calls.
func QueryGeometry(f *os.File) (Geometry, error) {
	if f == nil {
		return Geometry{}, &GeometryError{Err: errors.New("no terminal")}
	}
	cols, rows, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return Geometry{}, &GeometryError{Err: err}
	}
	if rows <= 0 || cols <= 0 {
		return Geometry{}, &GeometryError{Err: fmt.Errorf("invalid size %dx%d", cols, rows)}
	}
	return Geometry{Rows: rows, Cols: cols}, nil
}
