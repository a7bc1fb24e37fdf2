package terminal

import (
	"io"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2/terminfo"
	_ "github.com/gdamore/tcell/v2/terminfo/base"
)

// OpKind names a primitive terminal operation.
type OpKind int

const (
	OpMoveUp OpKind = iota
	OpMoveDown
	OpMoveLeft
	OpMoveRight
	OpColumnZero
	OpNewline
	OpClearToEndOfLine
	OpClearToEndOfScreen
	OpClearScreen
	OpEnterReverse
	OpExitAttributes
	OpBell
)

// Op is one terminal control operation. N is the repeat count for moves.
type Op struct {
	Kind OpKind
	N    int
}

func MoveUp(n int) Op {
	return Op{Kind: OpMoveUp, N: n}
}

func MoveDown(n int) Op {
	return Op{Kind: OpMoveDown, N: n}
}

func MoveLeft(n int) Op {
	return Op{Kind: OpMoveLeft, N: n}
}

func MoveRight(n int) Op {
	return Op{Kind: OpMoveRight, N: n}
}

func ColumnZero() Op {
	return Op{Kind: OpColumnZero}
}

func Newline() Op {
	return Op{Kind: OpNewline}
}

func ClearToEndOfLine() Op {
	return Op{Kind: OpClearToEndOfLine}
}

func ClearToEndOfScreen() Op {
	return Op{Kind: OpClearToEndOfScreen}
}

func ClearScreen() Op {
	return Op{Kind: OpClearScreen}
}

func EnterReverse() Op {
	return Op{Kind: OpEnterReverse}
}

func ExitAttributes() Op {
	return Op{Kind: OpExitAttributes}
}

func Bell() Op {
	return Op{Kind: OpBell}
}

// Caps holds the control strings resolved once at startup.
type Caps struct {
	Up1     string
	Left1   string
	Reverse string
	AttrOff string
	Clear   string
	Bell    string

	ti *terminfo.Terminfo
}

// ANSICaps returns the ECMA-48 sequences understood by every terminal
// emulator in practical use.
func ANSICaps() Caps {
	return Caps{
		Up1:     "\x1b[A",
		Left1:   "\b",
		Reverse: "\x1b[7m",
		AttrOff: "\x1b[m",
		Clear:   "\x1b[H\x1b[2J",
		Bell:    "\a",
	}
}

// LoadCaps looks name up in the terminfo database. Missing entries and
// missing capabilities fall back to ANSICaps.
func LoadCaps(name string) Caps {
	caps := ANSICaps()
	if strings.TrimSpace(name) == "" {
		return caps
	}
	ti, err := terminfo.LookupTerminfo(name)
	if err != nil || ti == nil {
		return caps
	}
	caps.ti = ti
	override(&caps.Up1, ti.CursorUp1)
	override(&caps.Left1, ti.CursorBack1)
	override(&caps.Reverse, ti.Reverse)
	override(&caps.AttrOff, ti.AttrOff)
	override(&caps.Clear, ti.Clear)
	override(&caps.Bell, ti.Bell)
	return caps
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// Apply writes ops to w.
func (c Caps) Apply(w io.Writer, ops ...Op) {
	for _, op := range ops {
		switch op.Kind {
		case OpMoveUp:
			c.repeat(w, c.Up1, op.N)
		case OpMoveLeft:
			c.repeat(w, c.Left1, op.N)
		// tcell's terminfo has no cud, cuf, el or ed entries; these stay ANSI.
		case OpMoveDown:
			if op.N > 0 {
				_, _ = io.WriteString(w, "\x1b["+strconv.Itoa(op.N)+"B")
			}
		case OpMoveRight:
			if op.N > 0 {
				_, _ = io.WriteString(w, "\x1b["+strconv.Itoa(op.N)+"C")
			}
		case OpColumnZero:
			_, _ = io.WriteString(w, "\r")
		case OpNewline:
			_, _ = io.WriteString(w, "\n")
		case OpClearToEndOfLine:
			_, _ = io.WriteString(w, "\x1b[K")
		case OpClearToEndOfScreen:
			_, _ = io.WriteString(w, "\x1b[J")
		case OpClearScreen:
			c.puts(w, c.Clear)
		case OpEnterReverse:
			c.puts(w, c.Reverse)
		case OpExitAttributes:
			c.puts(w, c.AttrOff)
		case OpBell:
			c.puts(w, c.Bell)
		}
	}
}

func (c Caps) repeat(w io.Writer, s string, n int) {
	for i := 0; i < n; i++ {
		c.puts(w, s)
	}
}

// puts honours terminfo padding when the string came from the database.
func (c Caps) puts(w io.Writer, s string) {
	if c.ti != nil {
		c.ti.TPuts(w, s)
		return
	}
	_, _ = io.WriteString(w, s)
}
