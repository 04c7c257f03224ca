package types

import (
	"errors"
	"fmt"
	"strings"
)

// Error tag constants for the picasso error taxonomy.
const (
	TagTokenizeError     = "TokenizeError"
	TagParseError        = "ParseError"
	TagResourceLoadError = "ResourceLoadError"
	TagEvaluationFault   = "EvaluationFault"
	TagNotFound          = "NotFound"
	TagAlreadyExists     = "AlreadyExists"
	TagInvalidArgument   = "InvalidArgument"
	TagCancelled         = "Cancelled"
	TagInternalError     = "InternalError"
)

// Tagged is implemented by errors that belong to the taxonomy above.
type Tagged interface {
	error
	Tag() string
}

// Error is the envelope reported by the API surfaces and stored with failed
// renders.
type Error struct {
	Message string   `json:"message"`
	Code    int64    `json:"code"`
	Tags    []string `json:"tags"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s (code=%d, tags=[%s])", e.Message, e.Code, strings.Join(e.Tags, ", "))
}

// HasTag returns true if the error has the specified tag.
func (e *Error) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ToMap converts the error to a JSON-friendly map.
func (e *Error) ToMap() map[string]interface{} {
	tags := make([]string, len(e.Tags))
	copy(tags, e.Tags)
	return map[string]interface{}{
		"message": e.Message,
		"code":    e.Code,
		"tags":    tags,
	}
}

// FromError classifies err into an Error envelope. Errors implementing Tagged
// keep their tag; *Error values are returned unchanged; anything else becomes
// an InternalError.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var tagged Tagged
	if errors.As(err, &tagged) {
		return &Error{Message: err.Error(), Tags: []string{tagged.Tag()}}
	}
	return &Error{Message: err.Error(), Tags: []string{TagInternalError}}
}

// Common error constructors.

// NewNotFoundError creates a NotFound error.
func NewNotFoundError(msg string) *Error {
	return &Error{Message: msg, Code: 404, Tags: []string{TagNotFound}}
}

// NewAlreadyExistsError creates an AlreadyExists error.
func NewAlreadyExistsError(msg string) *Error {
	return &Error{Message: msg, Code: 409, Tags: []string{TagAlreadyExists}}
}

// NewInvalidArgumentError creates an InvalidArgument error.
func NewInvalidArgumentError(msg string) *Error {
	return &Error{Message: msg, Code: 400, Tags: []string{TagInvalidArgument}}
}

// NewCancelledError creates a Cancelled error.
func NewCancelledError(msg string) *Error {
	return &Error{Message: msg, Code: 499, Tags: []string{TagCancelled}}
}
