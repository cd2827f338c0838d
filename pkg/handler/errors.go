package handler

import (
	"errors"
	"fmt"
)

var (
	// ErrPublish marks a file that fails a required check, or a handler
	// whose configuration is malformed.
	ErrPublish = errors.New("publish error")

	// ErrInvalidMetadataFormat marks a file the handler cannot process.
	ErrInvalidMetadataFormat = errors.New("invalid metadata format")

	ErrAttributeNotFound = errors.New("attribute not found")
	ErrUnknownHandler    = errors.New("unknown project handler")
)

const (
	KindPublish               = "publish"
	KindInvalidMetadataFormat = "invalid_metadata_format"
)

// Error is the error surfaced to the publisher. Kind is one of ErrPublish or
// ErrInvalidMetadataFormat and is matched by errors.Is.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// PublishErrorf formats a publish error.
func PublishErrorf(format string, args ...any) error {
	return &Error{Kind: ErrPublish, Message: fmt.Sprintf(format, args...)}
}

// InvalidMetadataFormatf formats a metadata format error.
func InvalidMetadataFormatf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidMetadataFormat, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind name of err, or "" for errors that are not
// handler errors.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidMetadataFormat):
		return KindInvalidMetadataFormat
	case errors.Is(err, ErrPublish):
		return KindPublish
	default:
		return ""
	}
}
