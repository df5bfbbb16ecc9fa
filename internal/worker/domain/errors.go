package domain

import "errors"

var (
	// ErrInvalidMessage marks queue messages that cannot be turned into a job
	ErrInvalidMessage = errors.New("invalid job message")

	// ErrInputMissing is returned when the submission directory does not exist
	ErrInputMissing = errors.New("input missing")

	// ErrChecksumFailure is returned when a file cannot be hashed
	ErrChecksumFailure = errors.New("checksum failure")

	// ErrUploadFailure is returned when an original or derivative upload fails
	ErrUploadFailure = errors.New("upload failure")

	// ErrRegistrationFailure is returned when the registration service rejects the record
	ErrRegistrationFailure = errors.New("registration failure")

	// ErrUnexpectedWorker covers panics and other unclassified job failures
	ErrUnexpectedWorker = errors.New("unexpected worker error")

	// ErrFolderNotFound is returned by folder lookups that match no row
	ErrFolderNotFound = errors.New("folder not found")
)

// JobError is a fatal job failure. Reason is the human-readable message
// reported in the FAILED notification.
type JobError struct {
	Kind   error
	Reason string
	Err    error
}

// NewJobError creates a JobError of the given kind
func NewJobError(kind error, reason string, err error) *JobError {
	return &JobError{Kind: kind, Reason: reason, Err: err}
}

func (e *JobError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// Is matches the error kind sentinel
func (e *JobError) Is(target error) bool {
	return e.Kind == target
}

// MessageError describes why a queue message was rejected
type MessageError struct {
	Reason string
	Err    error
}

func (e *MessageError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *MessageError) Unwrap() error {
	return e.Err
}

func (e *MessageError) Is(target error) bool {
	return target == ErrInvalidMessage
}
