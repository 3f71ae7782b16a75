package update

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cardmap/pkg/save"
	pkgupdate "github.com/agentstation/cardmap/pkg/update"
)

func parse(t *testing.T, args ...string) (*cobra.Command, *Flags) {
	t.Helper()
	cmd := &cobra.Command{Use: "update"}
	flags := addFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, flags
}

func TestFlagsOverrideConfig(t *testing.T) {
	base := []pkgupdate.Option{
		pkgupdate.WithSkipAnnotation(true),
		pkgupdate.WithFormats(save.FormatCSV),
	}

	cmd, flags := parse(t,
		"--skip-annotation=false", "--quota", "40", "--batch-size", "10",
		"--no-reconcile", "--format", "json,xlsx", "--dry-run",
		"--output-dir", "out", "--timeout", "2m")
	opts, err := flags.Options(cmd, base)
	require.NoError(t, err)

	got := pkgupdate.Defaults().Apply(opts...)
	assert.False(t, got.SkipAnnotation)
	assert.Equal(t, 40, got.Quota)
	assert.Equal(t, 10, got.BatchSize)
	assert.False(t, got.Reconcile)
	assert.Equal(t, []save.Format{save.FormatJSON, save.FormatXLSX}, got.Formats)
	assert.True(t, got.DryRun)
	assert.Equal(t, "out", got.OutputDir)
	assert.Equal(t, 2*time.Minute, got.Timeout)
}

func TestFlagsKeepConfigWhenUnset(t *testing.T) {
	base := []pkgupdate.Option{
		pkgupdate.WithSkipAnnotation(true),
		pkgupdate.WithFormats(save.FormatCSV),
	}

	cmd, flags := parse(t)
	opts, err := flags.Options(cmd, base)
	require.NoError(t, err)

	got := pkgupdate.Defaults().Apply(opts...)
	assert.True(t, got.SkipAnnotation)
	assert.Equal(t, []save.Format{save.FormatCSV}, got.Formats)
	assert.True(t, got.Reconcile)
	assert.Zero(t, got.Quota)
	assert.False(t, got.DryRun)
}

func TestFlagsRejectInvalidValues(t *testing.T) {
	for _, args := range [][]string{
		{"--quota", "0"},
		{"--batch-size", "-3"},
		{"--format", "pdf"},
	} {
		cmd, flags := parse(t, args...)
		_, err := flags.Options(cmd, nil)
		assert.Error(t, err, "%v", args)
	}
}
