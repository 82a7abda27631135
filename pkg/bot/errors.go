package bot

import (
	"errors"
	"fmt"
)

// Kind is the stable category of a bot failure.
type Kind string

const (
	KindLoginFailure              Kind = "login_failure"
	KindConversationLookupFailure Kind = "conversation_lookup_failure"
	KindTranslationFailure        Kind = "translation_failure"
	KindPostFailure               Kind = "post_failure"
	KindMalformedEvent            Kind = "malformed_event"
)

// Error represents a categorized failure in message handling or session upkeep.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return string(e.Kind)
	}

	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError wraps err with kind.
func NewError(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the category of err, or "" when err is not categorized.
func KindOf(err error) Kind {
	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Kind
	}

	return ""
}
