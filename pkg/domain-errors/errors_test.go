package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := errors.New("disk full")
	wrapped := fmt.Errorf("append: %w", Wrap(base, CodeInternal, "failed to persist"))

	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.False(t, HasCode(wrapped, CodeBadRequest))
	assert.False(t, HasCode(base, CodeInternal))
	assert.ErrorIs(t, wrapped, base)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeUnauthorized, CodeOf(New(CodeUnauthorized, "nope")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:   http.StatusBadRequest,
		CodeValidation:   http.StatusBadRequest,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeConflict:     http.StatusConflict,
		CodeRateLimited:  http.StatusTooManyRequests,
		CodeInternal:     http.StatusInternalServerError,
		Code("unknown"):  http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), "code %s", code)
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "failed to persist: disk full",
		Wrap(errors.New("disk full"), CodeInternal, "failed to persist").Error())
	assert.Equal(t, "bad input", New(CodeBadRequest, "bad input").Error())
}
