package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"postern/internal/auth"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"generic error", errors.New("boom"), ExitCodeError},
		{"token required", fmt.Errorf("wrapped: %w", auth.ErrTokenRequired), ExitCodeAuthRequired},
		{"provider blocked", fmt.Errorf("wrapped: %w", auth.ErrProviderBlocked), ExitCodeAuthFailed},
		{"user cancelled", auth.ErrUserCancelled, ExitCodeAuthFailed},
		{"provider error", &auth.ProviderError{Code: "access_denied"}, ExitCodeAuthFailed},
		{"exchange error", &auth.TokenExchangeError{Status: 401}, ExitCodeAuthFailed},
		{"config error", auth.ErrConfigInvalid, ExitCodeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getExitCode(tt.err))
		})
	}
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"send", "console", "auth", "env", "version"} {
		assert.True(t, names[want], "missing %q command", want)
	}

	authNames := map[string]bool{}
	for _, c := range authCmd.Commands() {
		authNames[c.Name()] = true
	}
	for _, want := range []string{"login", "status", "refresh", "clear", "test"} {
		assert.True(t, authNames[want], "missing auth %q subcommand", want)
	}
}
