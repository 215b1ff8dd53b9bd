package campaign

import (
	"errors"
	"fmt"
)

// Upload failures. All-or-nothing: no partial table is ever surfaced.
var (
	// ErrEmptyFile means the decoded grid had zero rows
	ErrEmptyFile = errors.New("the uploaded file is empty")

	// ErrUnsupportedFile means the extension was not .xlsx, .xls or .csv
	ErrUnsupportedFile = errors.New("please upload a valid Excel or CSV file")
)

// ErrSendInProgress is returned when Start is called while a send is running
var ErrSendInProgress = errors.New("a send operation is already in progress")

// ErrSessionExpired signals an authorization failure: the session is cleared
// and the operator has to log in again
var ErrSessionExpired = errors.New("session expired, please log in again")

// ParseError wraps a spreadsheet decode failure (corrupt or unsupported binary)
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing file: the file may be corrupted or in an unsupported format: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReadError wraps an I/O failure while reading the uploaded file
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("error reading the file: %v", e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ValidationError reports a missing or invalid field at a wizard step.
// Fully recoverable by user correction; blocks step progression.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// DispatchError reports a remote send failure for one recipient. It aborts the
// remainder of the send operation.
type DispatchError struct {
	Phone   string
	Message string
}

func (e *DispatchError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("failed to send message to %s", e.Phone)
	}
	return fmt.Sprintf("failed to send message to %s: %s", e.Phone, e.Message)
}

// NetworkError wraps a transport or decode failure against the remote API
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
