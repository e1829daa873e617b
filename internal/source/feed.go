package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"jobmate/acceptance-service/internal/model"
)

const (
	feedTimeout  = 15 * time.Second
	maxFeedBytes = 4 << 20
)

// FeedFetcher pulls jobs from an HTTP endpoint returning
// {"jobs": [...]}. The feed may repeat jobs across calls; the pass skips
// the ones already accepted.
type FeedFetcher struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// NewFeedFetcher constructs a fetcher with its own HTTP client.
func NewFeedFetcher(url string, log zerolog.Logger) *FeedFetcher {
	return &FeedFetcher{
		url:    url,
		client: &http.Client{Timeout: feedTimeout},
		log:    log,
	}
}

type feedResponse struct {
	Jobs []model.Job `json:"jobs"`
}

// FetchNewJobs performs one GET against the feed.
func (f *FeedFetcher) FetchNewJobs(ctx context.Context) ([]model.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %d: %s", resp.StatusCode, string(body))
	}

	var fr feedResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	jobs := make([]model.Job, 0, len(fr.Jobs))
	for _, j := range fr.Jobs {
		j, err := normalize(j)
		if err != nil {
			f.log.Warn().Str("title", j.Title).Err(err).Msg("dropping feed entry")
			continue
		}
		jobs = append(jobs, j)
	}
	f.log.Debug().Int("jobs", len(jobs)).Msg("feed fetched")
	return jobs, nil
}
