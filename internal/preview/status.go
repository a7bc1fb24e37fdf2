package preview

import (
	"fmt"
	"strconv"

	"github.com/kk-code-lab/pipeline/internal/capture"
	"github.com/kk-code-lab/pipeline/internal/render"
	"github.com/mattn/go-runewidth"
)

// StatusText summarises a preview for the status line. A "+" after the total
// marks output cut off at the line cap.
func StatusText(res render.Result, outcome capture.Outcome) string {
	if outcome.Failed() {
		text := fmt.Sprintf(" error in command: %d ", outcome.ExitCode)
		switch {
		case outcome.TimedOut:
			text += "(timed out) "
		case outcome.Interrupted:
			text += "(interrupted) "
		}
		return text
	}
	total := strconv.Itoa(res.LinesTotal)
	if res.TruncatedAtCap {
		total += "+"
	}
	return fmt.Sprintf(" %s total lines, showing %d ", total, res.LinesShown)
}

// StatusLine fits text to exactly cols display columns and returns the
// cursor to column zero so a pending wrap at the margin is never taken.
func StatusLine(text string, cols int) string {
	if cols < 1 {
		return "\r"
	}
	text = runewidth.Truncate(text, cols, "")
	return runewidth.FillRight(text, cols) + "\r"
}
