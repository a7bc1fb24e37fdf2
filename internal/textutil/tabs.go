package textutil

import (
	"github.com/mattn/go-runewidth"
)

// DefaultTabWidth matches the default tab stops of a terminal.
const DefaultTabWidth = 8

// TabSpaces reports how many columns a tab advances from column.
func TabSpaces(column, tabWidth int) int {
	if tabWidth <= 0 {
		tabWidth = DefaultTabWidth
	}
	return tabWidth - (column % tabWidth)
}

// RuneWidth reports the terminal columns r occupies: 0, 1 or 2.
// Control characters report 0; callers pass them through Replacement first.
func RuneWidth(r rune) int {
	w := runewidth.RuneWidth(r)
	if w < 0 {
		return 0
	}
	return w
}

// DisplayWidth reports the printable width of text accounting for wide and
// zero-width runes.
func DisplayWidth(text string) int {
	width := 0
	for _, ru := range text {
		width += RuneWidth(ru)
	}
	return width
}
