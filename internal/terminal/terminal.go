// Package terminal owns the controlling tty: its size, its control strings
// and the raw mode the line editor runs in.
package terminal

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/kk-code-lab/pipeline/internal/textutil"
	"golang.org/x/term"
)

// Terminal is the tty shared by the line editor and the preview. Writes are
// buffered until Flush.
type Terminal struct {
	mu      sync.Mutex
	input   *os.File
	output  *os.File
	reader  *bufio.Reader
	writer  *bufio.Writer
	text    io.Writer
	caps    Caps
	raw     *rawState
	ownsTTY bool
}

// Open attaches to /dev/tty, falling back to stdin/stdout when they are
// terminals. Stdout stays free for the program's result that way.
func Open(caps Caps) (*Terminal, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err == nil {
		t := New(tty, tty, caps)
		t.ownsTTY = true
		return t, nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return New(os.Stdin, os.Stdout, caps), nil
	}
	return nil, errors.New("no tty available")
}

// New wraps already opened input and output files.
func New(input, output *os.File, caps Caps) *Terminal {
	t := &Terminal{
		input:  input,
		output: output,
		reader: bufio.NewReader(input),
		writer: bufio.NewWriter(output),
		caps:   caps,
	}
	t.text = t.writer
	return t
}

// SetCharset encodes text written through Write into cs.
func (t *Terminal) SetCharset(cs textutil.Charset) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.text = cs.NewWriter(t.writer)
}

// Reader returns the buffered keyboard input.
func (t *Terminal) Reader() *bufio.Reader {
	return t.reader
}

// Geometry queries the current terminal size.
func (t *Terminal) Geometry() (Geometry, error) {
	return QueryGeometry(t.output)
}

// Write writes printable text.
func (t *Terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text.Write(p)
}

// Apply writes control operations.
func (t *Terminal) Apply(ops ...Op) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.caps.Apply(t.writer, ops...)
}

// Flush sends buffered output to the tty.
func (t *Terminal) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writer.Flush()
}

// Close restores the terminal mode and releases /dev/tty when it was opened here.
func (t *Terminal) Close() error {
	restoreErr := t.Restore()
	if !t.ownsTTY {
		return restoreErr
	}
	if err := t.input.Close(); err != nil {
		return err
	}
	return restoreErr
}
