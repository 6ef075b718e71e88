package transcribe

import "fmt"

// TransportError reports a network failure or unexpected status during
// submit or poll. It is fatal to the operation that produced it and is
// never retried automatically.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

// Error formats transport failures for logs and UI.
func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RemoteJobError is a terminal status=error reported by the job itself,
// carrying the remote error message.
type RemoteJobError struct {
	Message string
}

// Error returns the remote failure message.
func (e *RemoteJobError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("transcription failed: %s", e.Message)
}

// MalformedResultError is a terminal complete status whose payload
// fails shape validation. It is handled like a remote job failure.
type MalformedResultError struct {
	Reason error
}

// Error formats the validation failure.
func (e *MalformedResultError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("malformed transcription result: %v", e.Reason)
}

// Unwrap exposes the validation error.
func (e *MalformedResultError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Reason
}
