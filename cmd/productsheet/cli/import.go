package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/odyssey-erp/productsheet/internal/importer"
)

// Exit codes returned by ImportCommand.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitPartial = 10
)

// Importer runs one sheet import.
type Importer interface {
	Import(ctx context.Context, url string) (importer.ImportResult, error)
}

// ImportOptions defines available flags for the import command.
type ImportOptions struct {
	URL        string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ParseImportArgs reads the import command flags.
func ParseImportArgs(args []string, stderr io.Writer) (ImportOptions, error) {
	if stderr == nil {
		stderr = os.Stderr
	}
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts ImportOptions
	fs.StringVar(&opts.URL, "url", "", "spreadsheet share link")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return ImportOptions{}, err
	}
	if opts.URL == "" && fs.NArg() > 0 {
		opts.URL = fs.Arg(0)
	}
	return opts, nil
}

// ImportCLI runs sheet imports from the command line.
type ImportCLI struct {
	importer Importer
}

// NewImportCLI constructs the helper.
func NewImportCLI(imp Importer) (*ImportCLI, error) {
	if imp == nil {
		return nil, errors.New("import cli: importer required")
	}
	return &ImportCLI{importer: imp}, nil
}

// ImportCommand imports the sheet and prints the outcome. It returns
// ExitPartial when some rows were rejected by the store.
func (c *ImportCLI) ImportCommand(ctx context.Context, opts ImportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.URL == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "import: --url is required")
		return ExitFailure
	}

	res, err := c.importer.Import(ctx, opts.URL)
	if err != nil {
		_, res = importer.PartialFailure(res, err)
		if !opts.JSONOutput {
			_, _ = fmt.Fprintf(opts.Stderr, "import: %s (%v)\n", res.Message, err)
			return ExitFailure
		}
	}

	if opts.JSONOutput {
		if encErr := json.NewEncoder(opts.Stdout).Encode(res); encErr != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "import: encode json: %v\n", encErr)
			return ExitFailure
		}
	} else {
		renderImportHuman(opts.Stdout, res)
	}

	switch {
	case err != nil:
		return ExitFailure
	case len(res.Errors) > 0:
		return ExitPartial
	}
	return ExitOK
}

func renderImportHuman(out io.Writer, res importer.ImportResult) {
	_, _ = fmt.Fprintln(out, res.Message)
	if len(res.Errors) == 0 {
		return
	}
	_, _ = fmt.Fprintf(out, "%d row(s) rejected:\n", len(res.Errors))
	for _, msg := range res.Errors {
		_, _ = fmt.Fprintf(out, " - %s\n", msg)
	}
}
