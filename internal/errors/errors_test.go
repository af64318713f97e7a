package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoreError_ErrorIncludesCause(t *testing.T) {
	cause := errors.New("division by zero")
	err := New(CodeCellRuntime, "cell failed", cause)
	assert.Contains(t, err.Error(), "cell_runtime")
	assert.Contains(t, err.Error(), "cell failed")
	assert.Contains(t, err.Error(), "division by zero")
}

func TestCoreError_UnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	err := New(CodeKernelFatal, "kernel died", cause)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestIsCode_MatchesWrappedCoreError(t *testing.T) {
	err := fmt.Errorf("run cell: %w", New(CodeCycle, "cycle detected among 2 cell(s)", nil))
	assert.True(t, IsCode(err, CodeCycle))
	assert.False(t, IsCode(err, CodeDatabaseUnconfigured))
}

func TestIsCode_FalseForNonCoreError(t *testing.T) {
	assert.False(t, IsCode(errors.New("plain error"), CodeCycle))
}
