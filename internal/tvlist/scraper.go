package tvlist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hartleigh/tivod/internal/channels"
	"github.com/hartleigh/tivod/internal/infrastructure/logging"
)

// maxPageSize caps the listing page download. The real page is well
// under 4 MiB.
const maxPageSize = 8 << 20

// Scraper fetches and parses the regional listing site. It implements
// the regional side of the directory merge.
type Scraper struct {
	url    string
	client *http.Client
	logger *logging.Logger
}

// NewScraper creates a scraper for the given listing page URL.
func NewScraper(url string, timeout time.Duration, logger *logging.Logger) *Scraper {
	return &Scraper{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With("component", "tvlist"),
	}
}

// FetchRegional downloads the listing page and returns the channel
// table for the given region.
func (s *Scraper) FetchRegional(ctx context.Context, region string) ([]channels.RegionalChannel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort cleanup

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	source, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	result, err := Parse(source, region)
	if err != nil {
		return nil, err
	}
	if result.SkippedRows > 0 {
		s.logger.Warn("skipped unrecognised listing rows",
			"region", region, "skipped", result.SkippedRows)
	}
	s.logger.Debug("regional listing parsed",
		"region", region, "channels", len(result.Channels))

	return result.Channels, nil
}
