//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package terminal

import (
	"golang.org/x/sys/unix"
)

type rawState struct {
	termios unix.Termios
}

// EnableRaw switches the input to byte-at-a-time mode without echo. Unlike
// term.MakeRaw it keeps output post-processing, so "\n" still returns the
// cursor to column zero, and it keeps ISIG so Ctrl-C reaches the signal
// handler as SIGINT.
func (t *Terminal) EnableRaw() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.raw != nil {
		return nil
	}

	fd := int(t.input.Fd())
	termios, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return err
	}
	saved := &rawState{termios: *termios}

	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, termios); err != nil {
		return err
	}
	t.raw = saved
	return nil
}

// Restore returns the terminal to the mode saved by EnableRaw.
func (t *Terminal) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.writer.Flush()
	if t.raw == nil {
		return nil
	}
	err := unix.IoctlSetTermios(int(t.input.Fd()), ioctlWriteTermios, &t.raw.termios)
	t.raw = nil
	return err
}
