package save_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cardmap/pkg/save"
)

func TestParseFormats(t *testing.T) {
	formats, err := save.ParseFormats([]string{"json,csv", "XLSX", "json"})
	require.NoError(t, err)
	assert.Equal(t, []save.Format{save.FormatJSON, save.FormatCSV, save.FormatXLSX}, formats)

	_, err = save.ParseFormats([]string{"toml"})
	assert.Error(t, err)
}

func TestOptionsApply(t *testing.T) {
	buf := &bytes.Buffer{}
	opts := save.Defaults().Apply(
		save.WithFormat(save.FormatCSV),
		save.WithPath("out/merged_cards.csv"),
		save.WithWriter(buf),
	)
	assert.Equal(t, save.FormatCSV, opts.Format())
	assert.Equal(t, "out/merged_cards.csv", opts.Path())
	assert.Same(t, buf, opts.Writer())
	assert.Equal(t, "csv", opts.Format().String())
	assert.False(t, save.Format(42).IsValid())
}
