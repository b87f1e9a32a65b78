package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/productsheet/internal/importer"
	"github.com/odyssey-erp/productsheet/internal/sheets"
)

const sheetURL = "https://docs.google.com/spreadsheets/d/abc123/edit#gid=0"

type stubImporter struct {
	result importer.ImportResult
	err    error
	calls  []string
}

func (s *stubImporter) Import(ctx context.Context, url string) (importer.ImportResult, error) {
	s.calls = append(s.calls, url)
	return s.result, s.err
}

func TestImportCommandJSONSuccess(t *testing.T) {
	imp := &stubImporter{result: importer.ImportResult{Success: true, Message: "Successfully imported 2 products", ImportedCount: 2}}
	cli, err := NewImportCLI(imp)
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	exitCode := cli.ImportCommand(context.Background(), ImportOptions{
		URL:        sheetURL,
		JSONOutput: true,
		Stdout:     stdout,
		Stderr:     stderr,
	})
	require.Equal(t, ExitOK, exitCode)
	require.Empty(t, stderr.String())
	require.Equal(t, []string{sheetURL}, imp.calls)

	var res importer.ImportResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	require.True(t, res.Success)
	require.Equal(t, 2, res.ImportedCount)
}

func TestImportCommandPartial(t *testing.T) {
	imp := &stubImporter{result: importer.ImportResult{
		Success:       true,
		Message:       "Successfully imported 1 products",
		ImportedCount: 1,
		Errors:        []string{`Failed to import product "Tee": duplicate`},
	}}
	cli, err := NewImportCLI(imp)
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	exitCode := cli.ImportCommand(context.Background(), ImportOptions{URL: sheetURL, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, ExitPartial, exitCode)
	require.Contains(t, stdout.String(), "1 row(s) rejected")
	require.Contains(t, stdout.String(), `"Tee"`)
}

func TestImportCommandFailure(t *testing.T) {
	imp := &stubImporter{err: fmt.Errorf("importer: fetch: %w", &sheets.SourceError{Status: 404})}
	cli, err := NewImportCLI(imp)
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	exitCode := cli.ImportCommand(context.Background(), ImportOptions{URL: sheetURL, Stdout: stdout, Stderr: stderr})
	require.Equal(t, ExitFailure, exitCode)
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "not accessible")

	stdout.Reset()
	exitCode = cli.ImportCommand(context.Background(), ImportOptions{URL: sheetURL, JSONOutput: true, Stdout: stdout, Stderr: stderr})
	require.Equal(t, ExitFailure, exitCode)
	var res importer.ImportResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	require.False(t, res.Success)
}

func TestImportCommandFailureKeepsWrittenRows(t *testing.T) {
	imp := &stubImporter{
		result: importer.ImportResult{ImportedCount: 2},
		err:    fmt.Errorf("importer: bulk import interrupted: %w", context.Canceled),
	}
	cli, err := NewImportCLI(imp)
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	exitCode := cli.ImportCommand(context.Background(), ImportOptions{URL: sheetURL, JSONOutput: true, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, ExitFailure, exitCode)

	var res importer.ImportResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	require.False(t, res.Success)
	require.Equal(t, 2, res.ImportedCount)
}

func TestImportCommandRequiresURL(t *testing.T) {
	imp := &stubImporter{}
	cli, err := NewImportCLI(imp)
	require.NoError(t, err)

	stderr := new(bytes.Buffer)
	exitCode := cli.ImportCommand(context.Background(), ImportOptions{Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, ExitFailure, exitCode)
	require.Contains(t, stderr.String(), "--url is required")
	require.Empty(t, imp.calls)
}

func TestParseImportArgs(t *testing.T) {
	opts, err := ParseImportArgs([]string{"-json", "-url", sheetURL}, new(bytes.Buffer))
	require.NoError(t, err)
	require.True(t, opts.JSONOutput)
	require.Equal(t, sheetURL, opts.URL)

	opts, err = ParseImportArgs([]string{sheetURL}, new(bytes.Buffer))
	require.NoError(t, err)
	require.Equal(t, sheetURL, opts.URL)

	_, err = ParseImportArgs([]string{"-bogus"}, new(bytes.Buffer))
	require.Error(t, err)
}
