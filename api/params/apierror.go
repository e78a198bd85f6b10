// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package params

import (
	"fmt"

	"github.com/juju/errors"
)

// Error is the wire format of an error returned by the hostd admin API.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e Error) Error() string {
	return e.Message
}

func (e Error) ErrorCode() string {
	return e.Code
}

// GoString implements fmt.GoStringer. It means that a *Error shows up
// correctly when printed with the %#v verb.
func (e Error) GoString() string {
	return fmt.Sprintf("&params.Error{Message: %q, Code: %q}", e.Message, e.Code)
}

// The well known error codes spoken by the hostd admin API.
const (
	CodeNotFound     = "not found"
	CodeInUse        = "in use"
	CodeBadRequest   = "bad request"
	CodeNotSupported = "not supported"
)

// ErrCode returns the error code associated with the given error, or
// the empty string if there is none.
func ErrCode(err error) string {
	type errorCoder interface {
		ErrorCode() string
	}
	if coder, ok := errors.Cause(err).(errorCoder); ok {
		return coder.ErrorCode()
	}
	return ""
}

// IsCodeNotFound reports whether err carries CodeNotFound.
func IsCodeNotFound(err error) bool {
	return ErrCode(err) == CodeNotFound
}

// IsCodeInUse reports whether err carries CodeInUse. hostd refuses to
// remove a domain that is running or has volumes still attached
// elsewhere.
func IsCodeInUse(err error) bool {
	return ErrCode(err) == CodeInUse
}

// IsCodeBadRequest reports whether err carries CodeBadRequest.
func IsCodeBadRequest(err error) bool {
	return ErrCode(err) == CodeBadRequest
}

// TranslateWellKnownError translates the coded wire errors that have a
// juju/errors equivalent. Errors with other codes, in-use among them,
// come back unchanged and keep their code.
func TranslateWellKnownError(err error) error {
	switch ErrCode(err) {
	case CodeNotFound:
		return errors.NewNotFound(nil, err.Error())
	case CodeBadRequest:
		return errors.NewBadRequest(nil, err.Error())
	case CodeNotSupported:
		return errors.NewNotSupported(nil, err.Error())
	}
	return err
}
