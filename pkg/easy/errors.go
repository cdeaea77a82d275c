package easy

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	// KindInit: a handle or header list could not be allocated.
	KindInit Kind = iota + 1
	// KindConfig: the native layer rejected an option.
	KindConfig
	// KindTransfer: Execute failed at the transport or protocol level.
	KindTransfer
	// KindEscape: percent-encoding failed.
	KindEscape
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindConfig:
		return "config"
	case KindTransfer:
		return "transfer"
	case KindEscape:
		return "escape"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks against an *Error of the matching kind.
var (
	ErrInit     = errors.New("easy: init error")
	ErrConfig   = errors.New("easy: config error")
	ErrTransfer = errors.New("easy: transfer error")
	ErrEscape   = errors.New("easy: escape error")

	// ErrClosed is returned by every Session method once Close has run.
	ErrClosed = errors.New("easy: session closed")
)

// Error describes one failed native operation. It is never mutated after construction.
type Error struct {
	Kind Kind
	// Op names the failing call, e.g. "easy.Session.SetURL: setopt(URL)".
	Op     string
	Option Option
	Code   Code
	Detail string
}

func newError(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op, Code: NoCode}
}

func newCodeError(kind Kind, op string, opt Option, code Code, detail string) *Error {
	return &Error{Kind: kind, Op: op, Option: opt, Code: code, Detail: detail}
}

// Error renders "<op> :: code=[<code>]<detail>", or just "<op>" when no code was recorded.
func (e *Error) Error() string {
	if e.Code == NoCode {
		return e.Op
	}
	return fmt.Sprintf("%s :: code=[%d]%s", e.Op, int(e.Code), e.Detail)
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInit:
		return e.Kind == KindInit
	case ErrConfig:
		return e.Kind == KindConfig
	case ErrTransfer:
		return e.Kind == KindTransfer
	case ErrEscape:
		return e.Kind == KindEscape
	}
	return false
}
