// Package errs carries the stable error codes every service shares. The HTTP
// layer maps codes to statuses; the core never sees HTTP.
package errs

import "errors"

type ErrCode string

const (
	CodeValidation     ErrCode = "VALIDATION_ERROR"
	CodeNotFound       ErrCode = "RESOURCE_NOT_FOUND"
	CodeStateConflict  ErrCode = "STATE_CONFLICT"
	CodeTransientStore ErrCode = "TRANSIENT_STORE_FAILURE"
	CodeDelivery       ErrCode = "DELIVERY_FAILURE"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string { return e.msg }
func (e codedError) Code() ErrCode { return e.code }

func New(code ErrCode, msg string) error { return codedError{code: code, msg: msg} }

func Validation(msg string) error    { return New(CodeValidation, msg) }
func NotFound(msg string) error      { return New(CodeNotFound, msg) }
func StateConflict(msg string) error { return New(CodeStateConflict, msg) }

// Code extracts the error code, or "" for uncoded errors.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}
