package lineedit

import (
	"bufio"
	"unicode/utf8"
)

type keyKind int

const (
	keyUnknown keyKind = iota
	keyRune
	keyBound
	keyEscape
	keyBackspace
	keyDelete
	keyLeft
	keyRight
	keyWordLeft
	keyWordRight
	keyHome
	keyEnd
	keyKillToEnd
	keyKillToStart
	keyKillWord
	keyClearScreen
	keyEOF
	keyInterrupt
)

type keyEvent struct {
	kind keyKind
	r    rune
	b    byte
}

// readKey reads one key press. Bytes with a binding are reported as keyBound
// before any editing meaning is applied.
func readKey(r *bufio.Reader, bound func(byte) bool) (keyEvent, error) {
	b, err := r.ReadByte()
	if err != nil {
		return keyEvent{}, err
	}
	if bound(b) {
		return keyEvent{kind: keyBound, b: b}, nil
	}

	switch b {
	case 0x1b:
		return parseEscapeSequence(r)
	case 0x01:
		return keyEvent{kind: keyHome}, nil
	case 0x02:
		return keyEvent{kind: keyLeft}, nil
	case 0x03:
		return keyEvent{kind: keyInterrupt}, nil
	case 0x04:
		return keyEvent{kind: keyEOF}, nil
	case 0x05:
		return keyEvent{kind: keyEnd}, nil
	case 0x06:
		return keyEvent{kind: keyRight}, nil
	case 0x08, 0x7f:
		return keyEvent{kind: keyBackspace}, nil
	case 0x0b:
		return keyEvent{kind: keyKillToEnd}, nil
	case 0x0c:
		return keyEvent{kind: keyClearScreen}, nil
	case 0x15:
		return keyEvent{kind: keyKillToStart}, nil
	case 0x17:
		return keyEvent{kind: keyKillWord}, nil
	}

	if b < 0x20 {
		return keyEvent{kind: keyUnknown, b: b}, nil
	}
	if b < utf8.RuneSelf {
		return keyEvent{kind: keyRune, r: rune(b)}, nil
	}
	return readRune(r, b)
}

func readRune(r *bufio.Reader, lead byte) (keyEvent, error) {
	buf := []byte{lead}
	for !utf8.FullRune(buf) {
		b, err := r.ReadByte()
		if err != nil {
			return keyEvent{kind: keyUnknown}, nil
		}
		buf = append(buf, b)
	}
	ch, _ := utf8.DecodeRune(buf)
	if ch == utf8.RuneError {
		return keyEvent{kind: keyUnknown}, nil
	}
	return keyEvent{kind: keyRune, r: ch}, nil
}

func parseEscapeSequence(r *bufio.Reader) (keyEvent, error) {
	if r.Buffered() == 0 {
		return keyEvent{kind: keyEscape}, nil
	}
	next, err := r.ReadByte()
	if err != nil {
		return keyEvent{kind: keyEscape}, nil
	}

	switch next {
	case '[':
		return parseCSI(r)
	case 'O':
		final, err := r.ReadByte()
		if err != nil {
			return keyEvent{kind: keyEscape}, nil
		}
		switch final {
		case 'C':
			return keyEvent{kind: keyRight}, nil
		case 'D':
			return keyEvent{kind: keyLeft}, nil
		case 'H':
			return keyEvent{kind: keyHome}, nil
		case 'F':
			return keyEvent{kind: keyEnd}, nil
		default:
			return keyEvent{kind: keyUnknown}, nil
		}
	case 'b', 'B':
		return keyEvent{kind: keyWordLeft}, nil
	case 'f', 'F':
		return keyEvent{kind: keyWordRight}, nil
	default:
		return keyEvent{kind: keyEscape}, nil
	}
}

func parseCSI(r *bufio.Reader) (keyEvent, error) {
	seq := []byte{}
	for {
		b, err := r.ReadByte()
		if err != nil {
			return keyEvent{kind: keyEscape}, nil
		}
		seq = append(seq, b)
		if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~' {
			break
		}
		if len(seq) > 7 {
			return keyEvent{kind: keyUnknown}, nil
		}
	}

	params := string(seq[:len(seq)-1])
	switch seq[len(seq)-1] {
	case 'C':
		if params == "1;5" || params == "1;3" {
			return keyEvent{kind: keyWordRight}, nil
		}
		return keyEvent{kind: keyRight}, nil
	case 'D':
		if params == "1;5" || params == "1;3" {
			return keyEvent{kind: keyWordLeft}, nil
		}
		return keyEvent{kind: keyLeft}, nil
	case 'H':
		return keyEvent{kind: keyHome}, nil
	case 'F':
		return keyEvent{kind: keyEnd}, nil
	case '~':
		switch params {
		case "1", "7":
			return keyEvent{kind: keyHome}, nil
		case "4", "8":
			return keyEvent{kind: keyEnd}, nil
		case "3":
			return keyEvent{kind: keyDelete}, nil
		}
	}
	return keyEvent{kind: keyUnknown}, nil
}
