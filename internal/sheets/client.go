package sheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://docs.google.com"
	DefaultTimeout = 10 * time.Second

	DefaultMaxBytes = 8 << 20
)

var (
	ErrNoSheet   = errors.New("sheet id is empty")
	ErrBadStatus = errors.New("sheet export bad status")
	ErrTooLarge  = errors.New("sheet export too large")
)

type Options struct {
	BaseURL string
	// Timeout bounds one export request. Zero means no client timeout; the
	// caller's context still applies.
	Timeout time.Duration
	// FetchesPerSecond caps outbound export requests. Zero disables the cap.
	FetchesPerSecond float64
	Burst            int
	// MaxBytes rejects larger exports. Defaults to DefaultMaxBytes.
	MaxBytes int64
}

// Client downloads the CSV export of a published spreadsheet.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Limiter *rate.Limiter
	Log     *zap.Logger
	// MaxBytes is the largest export body accepted.
	MaxBytes int64
}

func NewClient(opts Options, log *zap.Logger) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		BaseURL: base,
		HTTP: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Log:      log,
		MaxBytes: opts.MaxBytes,
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if opts.FetchesPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(opts.FetchesPerSecond), burst)
	}
	return c
}

// ExportURL is the CSV export location for sheetID.
func (c *Client) ExportURL(sheetID string) string {
	return fmt.Sprintf("%s/spreadsheets/d/%s/export?format=csv&range=A:Z", c.BaseURL, url.PathEscape(sheetID))
}

// FetchRows downloads and parses the sheet. It either returns every non-blank
// row, header included, or an error.
func (c *Client) FetchRows(ctx context.Context, sheetID string) ([][]string, error) {
	if strings.TrimSpace(sheetID) == "" {
		return nil, ErrNoSheet
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch sheet %s: %w", sheetID, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ExportURL(sheetID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet %s: %w", sheetID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: sheet=%s status=%d", ErrBadStatus, sheetID, resp.StatusCode)
	}

	limit := c.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetID, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: sheet=%s limit=%d bytes", ErrTooLarge, sheetID, limit)
	}

	rows, err := ParseCSV(body)
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", sheetID, err)
	}

	c.Log.Debug("sheet fetched",
		zap.String("sheet", sheetID),
		zap.Int("rows", len(rows)),
		zap.Duration("duration", time.Since(start)),
	)
	return rows, nil
}
