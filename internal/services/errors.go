package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/goblog/apiserver/types"
)

// ErrValidation marks client-caused failures: missing required fields,
// malformed timestamps, unresolved author ids.
var ErrValidation = errors.New("validation failed")

// ErrNotAuthor is returned when a post mutation is attempted by anyone but
// the post's author.
var ErrNotAuthor = errors.New("only the author may modify the post")

// ErrEmailNotRegistered and ErrInvalidPassword are the two login failure
// modes. They are deliberately distinct, matching the messages the
// original application showed.
var (
	ErrEmailNotRegistered = errors.New("the email is not registered")
	ErrInvalidPassword    = errors.New("invalid password")
)

// timestampFormatHint is the strftime spelling of types.CreatedAtLayout.
// Legacy API clients expect validation messages to echo this exact string.
const timestampFormatHint = `"%Y-%m-%d %H:%M:%S"`

// ParseCreatedAt parses an explicit created_at override against the fixed
// layout, reporting the expected format on failure.
func ParseCreatedAt(value string) (time.Time, error) {
	t, err := time.Parse(types.CreatedAtLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid created_at %q, expected format %s", ErrValidation, value, timestampFormatHint)
	}
	return t, nil
}
