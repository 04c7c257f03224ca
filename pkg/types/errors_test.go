package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type tagged struct{ tag string }

func (e tagged) Error() string { return "tagged failure" }
func (e tagged) Tag() string   { return e.tag }

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *Error
	}{
		{"nil", nil, nil},
		{"plain", errors.New("boom"), &Error{Message: "boom", Tags: []string{TagInternalError}}},
		{"tagged", tagged{TagParseError}, &Error{Message: "tagged failure", Tags: []string{TagParseError}}},
		{"wrapped tagged", fmt.Errorf("context: %w", tagged{TagTokenizeError}),
			&Error{Message: "context: tagged failure", Tags: []string{TagTokenizeError}}},
		{"envelope", NewNotFoundError("missing"), NewNotFoundError("missing")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FromError(tt.err)); diff != "" {
				t.Errorf("FromError mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		err  *Error
		code int64
		tag  string
	}{
		{NewNotFoundError("x"), 404, TagNotFound},
		{NewAlreadyExistsError("x"), 409, TagAlreadyExists},
		{NewInvalidArgumentError("x"), 400, TagInvalidArgument},
		{NewCancelledError("x"), 499, TagCancelled},
	}
	for _, tt := range tests {
		if tt.err.Code != tt.code {
			t.Errorf("%s: code = %d, want %d", tt.tag, tt.err.Code, tt.code)
		}
		if !tt.err.HasTag(tt.tag) {
			t.Errorf("%s: missing tag", tt.tag)
		}
	}
}

func TestErrorToMap(t *testing.T) {
	m := NewInvalidArgumentError("bad").ToMap()
	want := map[string]interface{}{"message": "bad", "code": int64(400), "tags": []string{TagInvalidArgument}}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("ToMap mismatch (-want +got):\n%s", diff)
	}
}
