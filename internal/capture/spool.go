package capture

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// spool drains stderr while stdout is being drawn. It keeps the head of the
// stream, enough to redraw one page, and only counts the rest.
type spool struct {
	keepLines int
	lineBytes int

	lines [][]byte
	total int
}

func newSpool(keepLines, lineBytes int) *spool {
	if keepLines < 0 {
		keepLines = 0
	}
	return &spool{keepLines: keepLines, lineBytes: lineBytes}
}

// ReadFrom consumes r until EOF. Lines past the kept head are counted and
// dropped, so memory stays bounded however much the writer produces.
func (s *spool) ReadFrom(r io.Reader) (int64, error) {
	br := bufio.NewReaderSize(r, 32*1024)
	var read int64
	inLine := false
	keeping := false
	for {
		chunk, err := br.ReadSlice('\n')
		read += int64(len(chunk))
		if len(chunk) > 0 {
			if !inLine {
				s.total++
				inLine = true
				keeping = len(s.lines) < s.keepLines
				if keeping {
					s.lines = append(s.lines, nil)
				}
			}
			terminated := chunk[len(chunk)-1] == '\n'
			if terminated {
				chunk = chunk[:len(chunk)-1]
			}
			if keeping {
				s.keep(chunk)
			}
			if terminated {
				inLine = false
			}
		}
		if err != nil {
			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return read, nil
			}
			return read, err
		}
	}
}

func (s *spool) keep(chunk []byte) {
	last := len(s.lines) - 1
	room := s.lineBytes - len(s.lines[last])
	if room <= 0 {
		return
	}
	if len(chunk) > room {
		chunk = chunk[:room]
	}
	s.lines[last] = append(s.lines[last], chunk...)
}

// Reader replays the kept lines, each newline-terminated.
func (s *spool) Reader() io.Reader {
	var buf bytes.Buffer
	for _, line := range s.lines {
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return &buf
}
