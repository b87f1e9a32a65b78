package sheets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultBaseURL is the public host serving spreadsheet exports.
	DefaultBaseURL  = "https://docs.google.com"
	defaultTimeout  = 30 * time.Second
	defaultMaxBytes = 10 << 20
)

// ClientConfig configures the export client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxBytes   int64
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client downloads spreadsheet tabs as CSV.
type Client struct {
	baseURL    string
	maxBytes   int64
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a Client, filling unset options with defaults.
func NewClient(cfg ClientConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: base, maxBytes: maxBytes, httpClient: httpClient, logger: logger}
}

// ExportURL returns the CSV export address for ref.
func (c *Client) ExportURL(ref Reference) string {
	query := url.Values{}
	query.Set("format", "csv")
	query.Set("gid", ref.GID)
	return fmt.Sprintf("%s/spreadsheets/d/%s/export?%s", c.baseURL, url.PathEscape(ref.SpreadsheetID), query.Encode())
}

// FetchGrid downloads and parses the tab addressed by ref. It fails with a
// *SourceError for unsuccessful responses and ErrEmptySource when the tab
// holds fewer than two rows.
func (c *Client) FetchGrid(ctx context.Context, ref Reference) (Grid, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ExportURL(ref), nil)
	if err != nil {
		return nil, fmt.Errorf("sheets: build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &SourceError{Status: resp.StatusCode}
	}

	body := io.LimitReader(resp.Body, c.maxBytes+1)
	if isHTML(resp.Header.Get("Content-Type")) {
		return nil, &SourceError{Status: resp.StatusCode, SignIn: true, Reason: pageTitle(body)}
	}

	limited := &countingReader{r: body}
	grid, err := ParseCSV(limited, c.logger)
	if err != nil {
		return nil, err
	}
	if limited.n > c.maxBytes {
		return nil, fmt.Errorf("%w: export exceeds %d bytes", ErrSourceUnavailable, c.maxBytes)
	}
	if len(grid) < 2 {
		return nil, fmt.Errorf("%w: %d usable rows", ErrEmptySource, len(grid))
	}

	c.logger.Debug("sheet fetched",
		slog.String("spreadsheet", ref.SpreadsheetID),
		slog.String("gid", ref.GID),
		slog.Int("rows", len(grid)),
	)
	return grid, nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/html"
}

func pageTitle(r io.Reader) string {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "html page instead of csv"
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return "html page instead of csv"
	}
	return title
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
