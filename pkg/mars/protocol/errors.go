package protocol

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind enumerates the external protocol failures the orchestrator acts
// on. Anything else is ErrorKindOther and propagates unchanged.
type ErrorKind uint8

const (
	ErrorKindOther ErrorKind = iota
	ErrorKindNothingToUnstake
	ErrorKindNothingToWithdraw
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNothingToUnstake:
		return "nothing_to_unstake"
	case ErrorKindNothingToWithdraw:
		return "nothing_to_withdraw"
	}
	return "other"
}

// Error is a structured external protocol error.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("external protocol error: %s", e.Kind)
	}
	return fmt.Sprintf("external protocol error: %s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNothingToUnstake)
// holds regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNothingToUnstake  = &Error{Kind: ErrorKindNothingToUnstake}
	ErrNothingToWithdraw = &Error{Kind: ErrorKindNothingToWithdraw}

	ErrMalformedExternalInstruction = errors.New("malformed external instruction")
	ErrUnsupportedOperation         = errors.New("unsupported operation")
)

// KindOf returns the ErrorKind carried by err, or ErrorKindOther.
func KindOf(err error) ErrorKind {
	var protocolErr *Error
	if errors.As(err, &protocolErr) {
		return protocolErr.Kind
	}
	return ErrorKindOther
}

// IsSkip reports whether err is an "already done" condition that the
// lifecycle treats as a successful no-op.
func IsSkip(err error) bool {
	switch KindOf(err) {
	case ErrorKindNothingToUnstake, ErrorKindNothingToWithdraw:
		return true
	}
	return false
}
