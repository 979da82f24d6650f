package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
)

// Coded is implemented by every integrity rejection so callers can surface
// a machine-readable code alongside the human message.
type Coded interface {
	error
	Code() string
}

type codedError struct {
	code string
	msg  string
}

func (e *codedError) Error() string { return e.msg }

func (e *codedError) Code() string { return e.code }

// CodedError builds a sentinel rejection that carries a machine code but no
// structured fields. Rejections with context get their own error type.
func CodedError(code, msg string) error {
	return &codedError{code: code, msg: msg}
}

// ErrorCode extracts the machine code from err, or "" when err is not a
// policy rejection.
func ErrorCode(err error) string {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
