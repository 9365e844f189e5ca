package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("session is invalid")
	ErrNotOwner     = errors.New("tweet is not owned by user")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidImage = errors.New("invalid image")
	ErrTweetTooLong = errors.New("tweet too long")
)

// ValidationError 可由调用方展示给最终用户
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

func invalidImageError() *ValidationError {
	return &ValidationError{
		Field: "tweet_image",
		Reason: fmt.Sprintf("the uploaded image is not in an allowed format, allowed formats are %s",
			strings.Join(AllowedUploadExtensions, ", ")),
		Err: ErrInvalidImage,
	}
}
