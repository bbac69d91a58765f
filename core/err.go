package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ErrCodeGeneric           = "XXXX"
	ErrCodeBrokerUnavailable = "BROKER_UNAVAILABLE"
	ErrCodeNotConfirmed      = "PUBLISH_NOT_CONFIRMED"
	ErrCodeUnknownEventType  = "UNKNOWN_EVENT_TYPE"
	ErrCodeMalformedEvent    = "MALFORMED_EVENT"
)

var (
	ErrBrokerUnavailable   = NewErrfCode(ErrCodeBrokerUnavailable, "broker unavailable")
	ErrPublishNotConfirmed = NewErrfCode(ErrCodeNotConfirmed, "message not published, server failed to confirm")
	ErrUnknownEventType    = NewErrfCode(ErrCodeUnknownEventType, "unknown event type")
	ErrMalformedEvent      = NewErrfCode(ErrCodeMalformedEvent, "malformed event")
)

// Err is the error type used across the module.
//
// Use NewErrf, NewErrfCode or WrapErrf to instantiate. Errors created from the same
// sentinel (see Wrapf) are matched by errors.Is using their code.
type Err struct {
	code        string
	msg         string
	internalMsg string
	err         error
}

func (e *Err) Code() string {
	return e.code
}

func (e *Err) Msg() string {
	return e.msg
}

func (e *Err) Unwrap() error {
	return e.err
}

func (e *Err) Error() string {
	tok := make([]string, 0, 3)
	if e.msg != "" {
		tok = append(tok, e.msg)
	}
	if e.internalMsg != "" {
		tok = append(tok, e.internalMsg)
	}
	if e.err != nil {
		tok = append(tok, e.err.Error())
	}
	return strings.Join(tok, ", ")
}

// Is matches errors that share the same non-generic code.
func (e *Err) Is(target error) bool {
	t, ok := target.(*Err)
	if !ok {
		return false
	}
	if e == t {
		return true
	}
	return e.code != "" && e.code != ErrCodeGeneric && e.code == t.code
}

// Create new *Err from the sentinel, wrapping the cause error.
func (e *Err) Wrapf(cause error, internalMsg string, args ...any) error {
	n := &Err{code: e.code, msg: e.msg, err: cause}
	if len(args) > 0 {
		n.internalMsg = fmt.Sprintf(internalMsg, args...)
	} else {
		n.internalMsg = internalMsg
	}
	return n
}

// Create new *Err from the sentinel with extra internal message.
func (e *Err) New(internalMsg string, args ...any) error {
	return e.Wrapf(nil, internalMsg, args...)
}

func NewErrf(msg string, args ...any) *Err {
	return NewErrfCode(ErrCodeGeneric, msg, args...)
}

func NewErrfCode(code string, msg string, args ...any) *Err {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &Err{code: code, msg: msg}
}

// Wrap the cause error, nil is returned if cause is nil.
func WrapErrf(cause error, msg string, args ...any) error {
	if cause == nil {
		return nil
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	code := ErrCodeGeneric
	var ce *Err
	if errors.As(cause, &ce) {
		code = ce.code
	}
	return &Err{code: code, msg: msg, err: cause}
}
