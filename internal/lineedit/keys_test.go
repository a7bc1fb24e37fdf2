package lineedit

import (
	"bufio"
	"strings"
	"testing"
)

func TestReadKey(t *testing.T) {
	tests := []struct {
		input string
		want  keyEvent
	}{
		{"a", keyEvent{kind: keyRune, r: 'a'}},
		{"é", keyEvent{kind: keyRune, r: 'é'}},
		{"\x1b[A", keyEvent{kind: keyUnknown}},
		{"\x1b[C", keyEvent{kind: keyRight}},
		{"\x1b[D", keyEvent{kind: keyLeft}},
		{"\x1b[1~", keyEvent{kind: keyHome}},
		{"\x1b[4~", keyEvent{kind: keyEnd}},
		{"\x1b[3~", keyEvent{kind: keyDelete}},
		{"\x1b[1;3C", keyEvent{kind: keyWordRight}},
		{"\x1b", keyEvent{kind: keyEscape}},
		{"\x7f", keyEvent{kind: keyBackspace}},
		{"\x0c", keyEvent{kind: keyClearScreen}},
		{"\x1f", keyEvent{kind: keyUnknown, b: 0x1f}},
		{"\xff", keyEvent{kind: keyUnknown}},
	}
	for _, tt := range tests {
		r := bufio.NewReader(strings.NewReader(tt.input))
		got, err := readKey(r, func(byte) bool { return false })
		if err != nil {
			t.Fatalf("readKey(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("readKey(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestReadKeyBoundBytesWin(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("\x0c"))
	got, err := readKey(r, func(b byte) bool { return b == 0x0c })
	if err != nil {
		t.Fatalf("readKey: %v", err)
	}
	if got.kind != keyBound || got.b != 0x0c {
		t.Fatalf("readKey = %+v, want bound Ctrl-L", got)
	}
}
