package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := Wrap(fmt.Errorf("boom"), CodeRateLimited, "image backend throttled")

	assert.True(t, Is(err, ErrRateLimited))
	assert.False(t, Is(err, ErrInvalidInput))

	wrapped := fmt.Errorf("generate: %w", err)
	assert.True(t, Is(wrapped, ErrRateLimited))
}

func TestError_Message(t *testing.T) {
	cause := fmt.Errorf("unexpected EOF")
	err := Wrap(cause, CodeDecode, "base image could not be decoded")

	assert.Equal(t, "base image could not be decoded: unexpected EOF", err.Error())
	assert.Equal(t, cause, Unwrap(err))
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeConflict, http.StatusConflict},
		{CodeBusy, http.StatusConflict},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeDecode, http.StatusUnprocessableEntity},
		{CodeNoResult, http.StatusUnprocessableEntity},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"rate limited", Wrap(fmt.Errorf("429"), CodeRateLimited, "throttled"), MsgRateLimited},
		{"invalid input", Wrap(fmt.Errorf("400"), CodeInvalidInput, "rejected"), MsgInvalidInput},
		{"no result", NoResult("nothing returned"), MsgNoResult},
		{"decode is generic", Wrap(fmt.Errorf("bad png"), CodeDecode, "decode"), MsgGeneric},
		{"validation keeps message", Validation("title is required"), "title is required"},
		{"plain error is generic", fmt.Errorf("disk on fire"), MsgGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, CodeNotFound, CodeOf(fmt.Errorf("ctx: %w", NotFound("project"))))
}
