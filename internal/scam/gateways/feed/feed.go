// Package feed fetches and decodes the scam feed.
//
// The feed is a JSON document of the form
//
//	{"success": true, "result": [{"id": "...", "name": "...", ...}]}
//
// served over HTTP(S) or read from a local file. Records that fail
// validation are skipped and counted; the document as a whole is rejected
// when success is false or when it exceeds the configured size limit.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/haukened/scam-index/internal/scam/common/clock"
	"github.com/haukened/scam-index/internal/scam/common/log"
	"github.com/haukened/scam-index/internal/scam/domain"
)

// DefaultMaxBytes bounds a feed document when Options.MaxBytes is zero.
const DefaultMaxBytes int64 = 64 << 20

var (
	// ErrUnsuccessful is returned when the feed reports success=false.
	ErrUnsuccessful = errors.New("feed reported success=false")
	// ErrTruncated is returned when the document exceeds the size limit.
	ErrTruncated = errors.New("feed exceeds maximum size")
	// ErrUnsupportedScheme is returned by NewSource for URLs it cannot fetch.
	ErrUnsupportedScheme = errors.New("unsupported feed url scheme")
)

// Batch is one decoded feed document.
type Batch struct {
	Records []domain.ScamRecord // valid records in feed order
	Skipped int                 // records dropped because they failed validation
}

// Source yields the current feed contents.
type Source interface {
	Fetch(ctx context.Context) (Batch, error)
}

// Options configures a Source. Zero values take defaults.
type Options struct {
	URL      string
	Timeout  time.Duration
	MaxBytes int64
	Clock    clock.Clock
	Logger   log.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	if o.Logger == nil {
		o.Logger = log.NewNoopLogger()
	}
	return o
}

// NewSource returns a FileSource for file:// URLs and an HTTPSource for http(s).
func NewSource(opts Options) (Source, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	switch u.Scheme {
	case "file":
		return NewFileSource(u.Path, opts), nil
	case "http", "https":
		return NewHTTPSource(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

type response struct {
	Success bool         `json:"success"`
	Result  []wireRecord `json:"result"`
}

type wireRecord struct {
	ID          flexString `json:"id"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	Path        string     `json:"path"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory"`
	Description string     `json:"description"`
	Reporter    string     `json:"reporter"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// decode reads at most maxBytes from r and converts the document into a Batch.
func decode(r io.Reader, maxBytes int64, now time.Time, logger log.Logger) (Batch, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	// maxBytes+1 distinguishes "exactly at limit" from "truncated".
	lr := &io.LimitedReader{R: r, N: maxBytes + 1}
	var resp response
	err := json.NewDecoder(lr).Decode(&resp)
	if lr.N <= 0 {
		return Batch{}, ErrTruncated
	}
	if err != nil {
		return Batch{}, fmt.Errorf("decode feed: %w", err)
	}
	if !resp.Success {
		return Batch{}, ErrUnsuccessful
	}

	b := Batch{Records: make([]domain.ScamRecord, 0, len(resp.Result))}
	for i, w := range resp.Result {
		rec := domain.ScamRecord{
			ID:          string(w.ID),
			Name:        w.Name,
			URL:         w.URL,
			Path:        w.Path,
			Category:    w.Category,
			Subcategory: w.Subcategory,
			Description: w.Description,
			Reporter:    w.Reporter,
			FetchedAt:   now,
		}
		if err := rec.Validate(); err != nil {
			b.Skipped++
			logger.Debug(map[string]any{"index": i, "error": err}, "feed_skip_invalid")
			continue
		}
		b.Records = append(b.Records, rec)
	}
	return b, nil
}

// sanitizeURL strips path, query and credentials for logging.
func sanitizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	return u.Scheme + "://" + u.Host
}
