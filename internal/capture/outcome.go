package capture

import (
	"os"
	"syscall"
)

// Stream identifies one of the child's output streams.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Outcome describes how the previewed command ended and which stream was shown.
type Outcome struct {
	// ExitCode is the exit status, or 128+signal when the command was killed.
	ExitCode int
	Signaled bool
	Signal   syscall.Signal
	// StreamUsed is the stream rendered to the user.
	StreamUsed Stream
	// Capped reports that the command was stopped because its stdout reached
	// the line cap. Stderr is never capped, only counted past the kept head.
	Capped bool
	// TimedOut and Interrupted report why the context ended the command.
	TimedOut    bool
	Interrupted bool
}

// Failed reports whether the command is shown as an error.
func (o Outcome) Failed() bool {
	return o.StreamUsed == Stderr
}

func outcomeFromState(state *os.ProcessState) Outcome {
	if state == nil {
		return Outcome{ExitCode: -1}
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return Outcome{
			ExitCode: 128 + int(ws.Signal()),
			Signaled: true,
			Signal:   ws.Signal(),
		}
	}
	return Outcome{ExitCode: state.ExitCode()}
}
