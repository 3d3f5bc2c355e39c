package app_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohortly/app"
	"cohortly/internal/csvinput"
	"cohortly/internal/testsupport"
)

func TestAnalyzeFromCSVFile(t *testing.T) {
	f := testsupport.SubscriptionFixture()
	path := filepath.Join(t.TempDir(), "subs.csv")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, csvinput.Write(file, f.Headers, f.Rows))
	require.NoError(t, file.Close())

	table, err := app.ReadCSVFile(path)
	require.NoError(t, err)

	report, err := app.Analyze(table.Headers, table.Rows, app.Options{})
	require.NoError(t, err)
	assert.Equal(t, app.DatasetType("subscription"), report.DatasetType)
	assert.Equal(t, "user_id", app.AutoDetectColumns(table.Headers).UserID)
}

func TestAnalyzeMissingColumns(t *testing.T) {
	_, err := app.Analyze([]string{"x"}, []app.RawRow{{"x": "1"}}, app.Options{})
	assert.True(t, errors.Is(err, app.ErrMissingRequiredColumns))
}
