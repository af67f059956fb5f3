package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetMocks restores the original function implementations.
func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(fmt.Errorf("run: %w", context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("profile \"ci\" failed")))
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	var written string
	code := -1
	osWriteFile = func(name string, data []byte, _ os.FileMode) error {
		assert.Equal(t, panicLogFile, name)
		written = string(data)
		return nil
	}
	osExit = func(c int) { code = c }

	func() {
		defer handlePanic()
		panic("nil automation")
	}()

	require.Equal(t, 2, code)
	assert.Contains(t, written, "panic: nil automation")
	assert.Contains(t, written, "goroutine")
}

func TestHandlePanicNoPanic(t *testing.T) {
	defer resetMocks()
	osExit = func(int) { t.Fatal("exit must not be called without a panic") }

	func() {
		defer handlePanic()
	}()
}
