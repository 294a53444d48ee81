package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/fmreloaded/modman/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestModmanError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.ModmanError
		expected string
	}{
		{
			name:     "error_without_wrapped",
			err:      errors.New(errors.ErrPathSecurity, "path escapes root"),
			expected: "[PATH_SECURITY] path escapes root",
		},
		{
			name:     "error_with_wrapped",
			err:      errors.Wrap(fmt.Errorf("permission denied"), errors.ErrIOFailure, "copy failed"),
			expected: "[IO_FAILURE] copy failed: permission denied",
		},
		{
			name:     "formatted_error",
			err:      errors.Newf(errors.ErrFileTooLarge, "file is %d bytes", 1024),
			expected: "[FILE_TOO_LARGE] file is 1024 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.ErrIOFailure, "should be nil"))
	assert.Nil(t, errors.Wrapf(nil, errors.ErrIOFailure, "should be %s", "nil"))
}

func TestIsErrorCode(t *testing.T) {
	err := errors.New(errors.ErrSymlinkRefused, "refusing to delete symlink")

	assert.True(t, errors.IsErrorCode(err, errors.ErrSymlinkRefused))
	assert.False(t, errors.IsErrorCode(err, errors.ErrPathSecurity))
	assert.False(t, errors.IsErrorCode(stderrors.New("plain"), errors.ErrSymlinkRefused))

	// Wrapped errors still match their code
	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, errors.IsErrorCode(wrapped, errors.ErrSymlinkRefused))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, errors.ErrArchiveBomb,
		errors.GetErrorCode(errors.New(errors.ErrArchiveBomb, "too big")))
	assert.Equal(t, errors.ErrUnknown,
		errors.GetErrorCode(stderrors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := errors.Wrap(cause, errors.ErrManifestInvalid, "bad manifest")

	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.True(t, stderrors.Is(err, cause))
}

func TestIsSecurity(t *testing.T) {
	tests := []struct {
		code     errors.ErrorCode
		security bool
	}{
		{errors.ErrPathSecurity, true},
		{errors.ErrSymlinkRefused, true},
		{errors.ErrProtectedDir, true},
		{errors.ErrArchiveBomb, true},
		{errors.ErrArchiveFormat, true},
		{errors.ErrFileTooLarge, false},
		{errors.ErrManifestMissing, false},
		{errors.ErrIOFailure, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := errors.New(tt.code, "x")
			assert.Equal(t, tt.security, errors.IsSecurity(err))
		})
	}
}

func TestWithDetail(t *testing.T) {
	err := errors.New(errors.ErrPathSecurity, "escape").
		WithDetail("target", "/etc/passwd").
		WithDetail("root", "/game")

	assert.Equal(t, "/etc/passwd", err.Details["target"])
	assert.Equal(t, "/game", err.Details["root"])
}
