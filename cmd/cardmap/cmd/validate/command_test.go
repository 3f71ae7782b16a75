package validate

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cardmap/internal/cmd/application"
	"github.com/agentstation/cardmap/pkg/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(&application.Mock{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "cards.json")
	require.NoError(t, os.WriteFile(valid, []byte("[]\n"), 0o644))
	_, err := execute(t, valid)
	assert.NoError(t, err)

	invalid := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`[{"uniqueId": 1}]`), 0o644))
	_, err = execute(t, invalid)
	assert.True(t, errors.IsValidationError(err), "got %v", err)

	_, err = execute(t, filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	_, err = execute(t)
	assert.True(t, errors.IsValidationError(err))
}

func TestValidateCommandSchema(t *testing.T) {
	out, err := execute(t, "--schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"uniqueId"`)
}
