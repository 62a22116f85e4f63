package errs

import (
	"errors"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// CodeError carries a machine-readable code and wire message next to an
// optional human detail. Equality under errors.Is is by code, so handlers can
// match a wrapped error against the predeclared taxonomy values.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func New(code int, msg, detail string) *CodeError {
	return &CodeError{Code: code, Msg: msg, Detail: detail}
}

func (e *CodeError) clone() *CodeError {
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: e.Detail}
}

// WithDetail returns a copy whose detail is replaced by the given text.
func (e *CodeError) WithDetail(detail string) *CodeError {
	c := e.clone()
	c.Detail = detail
	return c
}

// Wrap annotates the error with a call stack.
func (e *CodeError) Wrap() error {
	return pkgerrors.WithStack(e.clone())
}

// WrapMsg appends detail text and annotates with a call stack.
func (e *CodeError) WrapMsg(detail string) error {
	c := e.clone()
	if detail != "" {
		if c.Detail == "" {
			c.Detail = detail
		} else {
			c.Detail += ", " + detail
		}
	}
	return pkgerrors.WithStack(c)
}

func (e *CodeError) Is(err error) bool {
	var target *CodeError
	if !errors.As(err, &target) {
		return e == nil && err == nil
	}
	if e == nil {
		return false
	}
	return e.Code == target.Code
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// AsCodeError unwraps err down to a *CodeError, or nil when it carries none.
func AsCodeError(err error) *CodeError {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// Wrap annotates an arbitrary error with a call stack.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithStack(err)
}

// WrapMsg annotates an arbitrary error with a message and call stack.
func WrapMsg(err error, msg string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, msg)
}
