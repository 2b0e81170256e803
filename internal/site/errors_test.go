package site

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_ExitCode(t *testing.T) {
	tests := []struct {
		kind Kind
		name string
		code int
	}{
		{KindUnknown, "unknown", 1},
		{KindUsage, "usage", 2},
		{KindConfig, "config", 3},
		{KindSetup, "setup", 4},
		{KindIO, "io", 5},
		{KindMacro, "macro", 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.kind.String())
			assert.Equal(t, tt.code, tt.kind.ExitCode())
		})
	}
}

func TestError_Format(t *testing.T) {
	base := errors.New("permission denied")

	err := NewError(KindIO, "write", "build/index.html", base)
	assert.Equal(t, "write build/index.html: permission denied", err.Error())
	assert.ErrorIs(t, err, base)

	err = NewError(KindMacro, "build", "", base)
	assert.Equal(t, "build: permission denied", err.Error())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("plain")))

	wrapped := fmt.Errorf("running: %w", NewError(KindConfig, "load", "mori.yml", errors.New("bad yaml")))
	assert.Equal(t, KindConfig, KindOf(wrapped))
	assert.Equal(t, 3, ExitCode(wrapped))
}
