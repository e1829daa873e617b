// Package confirm accepts a job on the platform by following its accept
// link with the chosen timeslot.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SlotLayout is the timeslot format posted back to the platform.
const SlotLayout = "2006-01-02 15:04"

var (
	// ErrNoAcceptToken means the job carried no accept link.
	ErrNoAcceptToken = errors.New("confirm: job has no accept token")
	// ErrInvalidToken means the accept link is not an absolute http(s) URL.
	ErrInvalidToken = errors.New("confirm: accept token is not an http(s) URL")
	// ErrRejected means the platform refused the acceptance, e.g. because
	// another worker took the job first.
	ErrRejected = errors.New("confirm: platform rejected acceptance")
)

// HTTPConfirmer POSTs the chosen timeslot to the job's accept link.
type HTTPConfirmer struct {
	client *http.Client
	loc    *time.Location
	dryRun bool
	log    zerolog.Logger
}

// NewHTTPConfirmer constructs a confirmer. With dryRun set no request is
// sent; the acceptance is only logged.
func NewHTTPConfirmer(loc *time.Location, dryRun bool, log zerolog.Logger) *HTTPConfirmer {
	return &HTTPConfirmer{
		client: &http.Client{Timeout: 15 * time.Second},
		loc:    loc,
		dryRun: dryRun,
		log:    log,
	}
}

// Confirm accepts the job behind token for the slot starting at.
func (c *HTTPConfirmer) Confirm(ctx context.Context, token string, at time.Time) error {
	if strings.TrimSpace(token) == "" {
		return ErrNoAcceptToken
	}
	u, err := url.Parse(token)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}

	slot := at.In(c.loc).Format(SlotLayout)
	if c.dryRun {
		c.log.Info().Str("accept_link", token).Str("timeslot", slot).Msg("dry run: not contacting platform")
		return nil
	}

	form := url.Values{}
	form.Set("timeslot", slot)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http POST: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.log.Info().Str("timeslot", slot).Msg("job accepted on platform")
		return nil
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w (%d): %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	default:
		return fmt.Errorf("platform returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
