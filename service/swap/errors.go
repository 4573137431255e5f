package swap

import "errors"

// errors used by controllers

type ErrCode string

const (
	ErrValidation ErrCode = "VALIDATION"
	ErrPermission ErrCode = "PERMISSION"
	ErrConflict   ErrCode = "CONFLICT"
	ErrNotFound   ErrCode = "NOT_FOUND"

	// ErrInvariant means the defensive re-validation before the ownership
	// transfer failed. Fatal: the transaction aborts and operators must
	// reconcile by hand.
	ErrInvariant ErrCode = "INVARIANT_VIOLATION"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return string(e.code)
}
func (e codedError) Code() ErrCode { return e.code }

func makeErr(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

// Code extracts the error code, or "" for uncoded errors.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}
