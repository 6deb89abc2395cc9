package lifo

import "fmt"

// RemoteError is an error reported by a Server in response to a request.
// It matches the local sentinel of the same kind, so callers can write
// errors.Is(err, lifo.ErrInterrupted) regardless of where the device lives.
type RemoteError struct {
	// Code is the error kind, e.g. "interrupted" or "copy_fault".
	Code string

	// Message is the server-side error text.
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %s", e.Code, e.Message)
}

// Is reports whether target is the sentinel error for e.Code.
func (e *RemoteError) Is(target error) bool {
	switch e.Code {
	case codeInterrupted:
		return target == ErrInterrupted
	case codeCopyFault:
		return target == ErrCopyFault
	case codeClosed:
		return target == ErrClosed
	case codeProtocol:
		return target == ErrProtocol
	}
	return false
}

// remoteError returns the error carried by a response, or nil.
func remoteError(m message) error {
	if m.Code == "" {
		return nil
	}
	return &RemoteError{Code: m.Code, Message: m.Err}
}
