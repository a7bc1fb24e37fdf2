package capture

import "fmt"

// SpawnError reports that the child could not be started: pipe, fork or exec
// failed. There is no way to preview anything without a working child process.
type SpawnError struct {
	Shell string
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Shell, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// StreamError reports a failure reading one of the child's streams after it
// started.
type StreamError struct {
	Stream Stream
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stream, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
