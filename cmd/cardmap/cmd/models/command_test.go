package models

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cardmap/internal/cmd/application"
)

func TestModelsCommand(t *testing.T) {
	var discovered bool
	app := &application.Mock{
		ModelsFunc: func(_ context.Context, discover bool) ([]string, error) {
			discovered = discover
			return []string{"gemini-2.5-flash", "gemini-2.0-flash"}, nil
		},
		OutputFormatFunc: func() string { return "json" },
	}

	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--discover"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.True(t, discovered)
	assert.JSONEq(t, `["gemini-2.5-flash", "gemini-2.0-flash"]`, out.String())
}

func TestModelsCommandError(t *testing.T) {
	app := &application.Mock{
		ModelsFunc: func(context.Context, bool) ([]string, error) {
			return nil, errors.New("no key")
		},
	}

	cmd := NewCommand(app)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	assert.EqualError(t, cmd.ExecuteContext(context.Background()), "no key")
}
