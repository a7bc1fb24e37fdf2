// Package lineedit is a single-line editor for a raw-mode terminal. Keys can
// be bound to handlers that receive the line and its on-screen geometry.
package lineedit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode"

	"github.com/kk-code-lab/pipeline/internal/cursor"
	"github.com/kk-code-lab/pipeline/internal/terminal"
	"github.com/kk-code-lab/pipeline/internal/textutil"
)

// ErrInterrupted is returned by Run when the user presses Ctrl-C and the
// terminal delivers it as a byte rather than a signal.
var ErrInterrupted = errors.New("interrupted")

// Screen is the terminal the editor draws on.
type Screen interface {
	io.Writer
	Geometry() (terminal.Geometry, error)
	Apply(ops ...terminal.Op)
	Flush() error
}

// Handler runs when its key is pressed. An error ends Run.
type Handler interface {
	HandleTrigger(text string, frame cursor.Frame) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(text string, frame cursor.Frame) error

func (f HandlerFunc) HandleTrigger(text string, frame cursor.Frame) error {
	return f(text, frame)
}

// fallbackGeometry is used while the terminal size cannot be read.
var fallbackGeometry = terminal.Geometry{Rows: 24, Cols: 80}

// Editor edits one line.
type Editor struct {
	in          *bufio.Reader
	screen      Screen
	prompt      string
	promptWidth int
	bindings    map[byte]Handler
	logger      *slog.Logger

	buf   []rune
	point int

	// Where the cursor is relative to the first cell of the edit line, and
	// how many rows the last paint used.
	at        cursor.Position
	drawnRows int
}

// New returns an editor reading keys from in. Control characters in prompt
// are made visible so they cannot upset the cursor arithmetic.
func New(in *bufio.Reader, screen Screen, prompt string, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	prompt = textutil.SanitizeTerminalText(prompt)
	return &Editor{
		in:          in,
		screen:      screen,
		prompt:      prompt,
		promptWidth: textutil.DisplayWidth(prompt),
		bindings:    make(map[byte]Handler),
		logger:      logger,
		drawnRows:   1,
	}
}

// Bind runs h when key is read. Bindings take precedence over editing keys.
func (e *Editor) Bind(key byte, h Handler) {
	e.bindings[key] = h
}

// Text returns the current line.
func (e *Editor) Text() string {
	return string(e.buf)
}

// SetText replaces the line and moves the cursor to its end.
func (e *Editor) SetText(text string) {
	e.buf = []rune(text)
	e.point = len(e.buf)
}

// Frame describes the line in display columns.
func (e *Editor) Frame() cursor.Frame {
	return cursor.Frame{
		PromptWidth:  e.promptWidth,
		BufferLength: runesWidth(e.buf),
		CursorOffset: runesWidth(e.buf[:e.point]),
	}
}

// ForceRedraw repaints the line. The cursor must be on the first cell of the
// edit line; nothing below the line is touched.
func (e *Editor) ForceRedraw() {
	e.at = cursor.Position{}
	if err := e.refresh(); err != nil {
		e.logger.Warn("redraw failed", slog.Any("err", err))
	}
}

// Run edits until Ctrl-D finishes the line, returning its text. Ctrl-D on an
// empty line and end of input also finish.
func (e *Editor) Run() (string, error) {
	if err := e.refresh(); err != nil {
		return "", err
	}
	for {
		key, err := readKey(e.in, e.isBound)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return e.finish()
			}
			return "", fmt.Errorf("read key: %w", err)
		}

		done, err := e.handle(key)
		if err != nil {
			return "", err
		}
		if done {
			return e.finish()
		}
	}
}

func (e *Editor) isBound(b byte) bool {
	_, ok := e.bindings[b]
	return ok
}

func (e *Editor) handle(key keyEvent) (bool, error) {
	switch key.kind {
	case keyBound:
		if err := e.flushScreen(); err != nil {
			return false, err
		}
		return false, e.bindings[key.b].HandleTrigger(e.Text(), e.Frame())
	case keyInterrupt:
		return false, ErrInterrupted
	case keyEOF:
		if len(e.buf) == 0 || e.point == len(e.buf) {
			return true, nil
		}
		e.deleteRange(e.point, e.point+1)
	case keyRune:
		if !unicode.IsPrint(key.r) {
			e.bell()
			return false, nil
		}
		e.insert(key.r)
	case keyBackspace:
		if e.point == 0 {
			e.bell()
			return false, nil
		}
		e.deleteRange(e.point-1, e.point)
		e.point--
	case keyDelete:
		if e.point == len(e.buf) {
			e.bell()
			return false, nil
		}
		e.deleteRange(e.point, e.point+1)
	case keyLeft:
		if e.point > 0 {
			e.point--
		}
	case keyRight:
		if e.point < len(e.buf) {
			e.point++
		}
	case keyWordLeft:
		e.point = e.wordStart()
	case keyWordRight:
		e.point = e.wordEnd()
	case keyHome:
		e.point = 0
	case keyEnd:
		e.point = len(e.buf)
	case keyKillToEnd:
		e.buf = e.buf[:e.point]
	case keyKillToStart:
		e.deleteRange(0, e.point)
		e.point = 0
	case keyKillWord:
		start := e.wordStart()
		e.deleteRange(start, e.point)
		e.point = start
	case keyClearScreen:
		e.screen.Apply(terminal.ClearScreen())
		e.at = cursor.Position{}
		e.drawnRows = 1
	case keyEscape:
		return false, nil
	default:
		e.bell()
		return false, nil
	}
	return false, e.refresh()
}

func (e *Editor) insert(r rune) {
	e.buf = append(e.buf, 0)
	copy(e.buf[e.point+1:], e.buf[e.point:])
	e.buf[e.point] = r
	e.point++
}

func (e *Editor) deleteRange(from, to int) {
	e.buf = append(e.buf[:from], e.buf[to:]...)
}

func (e *Editor) wordStart() int {
	i := e.point
	for i > 0 && unicode.IsSpace(e.buf[i-1]) {
		i--
	}
	for i > 0 && !unicode.IsSpace(e.buf[i-1]) {
		i--
	}
	return i
}

func (e *Editor) wordEnd() int {
	i := e.point
	for i < len(e.buf) && unicode.IsSpace(e.buf[i]) {
		i++
	}
	for i < len(e.buf) && !unicode.IsSpace(e.buf[i]) {
		i++
	}
	return i
}

func (e *Editor) bell() {
	e.screen.Apply(terminal.Bell())
	_ = e.screen.Flush()
}

func (e *Editor) geometry() terminal.Geometry {
	g, err := e.screen.Geometry()
	if err != nil {
		e.logger.Debug("geometry unavailable", slog.Any("err", err))
		return fallbackGeometry
	}
	return g
}

// refresh clears the rows painted last time, writes the prompt and line, and
// places the cursor on the insertion point.
func (e *Editor) refresh() error {
	g := e.geometry()
	f := e.Frame()

	e.screen.Apply(cursor.ClearRows(e.at, e.drawnRows)...)
	if _, err := io.WriteString(e.screen, e.prompt+string(e.buf)); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	end := f.PromptWidth + f.BufferLength
	if end > 0 && end%g.Cols == 0 {
		// The terminal holds the cursor on the last column until the next
		// character; make the wrap happen now.
		e.screen.Apply(terminal.Newline())
	}
	target := cursor.At(f.PromptWidth+f.CursorOffset, g.Cols)
	e.screen.Apply(cursor.Move(cursor.At(end, g.Cols), target)...)
	e.at = target
	e.drawnRows = cursor.EditLineRows(f, g)
	return e.flushScreen()
}

// finish leaves the cursor on a fresh row below the line and clears whatever
// preview is still drawn there.
func (e *Editor) finish() (string, error) {
	g := e.geometry()
	f := e.Frame()
	e.screen.Apply(cursor.Move(e.at, cursor.At(f.PromptWidth+f.BufferLength, g.Cols))...)
	e.screen.Apply(terminal.Newline(), terminal.ClearToEndOfScreen())
	if err := e.flushScreen(); err != nil {
		return "", err
	}
	return e.Text(), nil
}

func (e *Editor) flushScreen() error {
	if err := e.screen.Flush(); err != nil {
		return fmt.Errorf("write terminal: %w", err)
	}
	return nil
}

func runesWidth(rs []rune) int {
	width := 0
	for _, r := range rs {
		width += textutil.RuneWidth(r)
	}
	return width
}
