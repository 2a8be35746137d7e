package embedding

import "errors"

// ErrorKind classifies generation failures so callers can branch on them
// (e.g. retry a Timeout, surface an UnsupportedModel to the user).
type ErrorKind string

const (
	ErrFileNotFound      ErrorKind = "file_not_found"
	ErrUnsupportedModel  ErrorKind = "unsupported_model"
	ErrTimeout           ErrorKind = "timeout"
	ErrWorkerCrash       ErrorKind = "worker_crash"
	ErrInvalidResult     ErrorKind = "invalid_result"
	ErrModelError        ErrorKind = "model_error"
	ErrDimensionMismatch ErrorKind = "dimension_mismatch"
)

// Error is a generation failure with a machine-readable kind.
// ModelErrorType and Traceback are only set for ErrModelError, where they
// carry the worker-reported failure class (e.g. "NoFaceFound") and stack.
type Error struct {
	Kind           ErrorKind
	msg            string
	err            error
	ModelErrorType string
	Traceback      string
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

// KindOf returns the error kind if err is a generation error, or "" otherwise.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// IsKind reports whether err is a generation error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
