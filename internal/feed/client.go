// Package feed pulls incident records from the public Socrata crime feed.
package feed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/crimengo/crimengo/internal/model"
)

// DefaultBaseURL is the Chicago crime incident dataset endpoint.
const DefaultBaseURL = "https://data.cityofchicago.org/resource/ijzp-q8t2.json"

// Options configures the feed client.
type Options struct {
	BaseURL    string
	UserAgent  string
	AppToken   string
	Timeout    time.Duration
	MaxRetries int
	RateLimit  rate.Limit
	Burst      int
}

// Client fetches incident pages with rate limiting and bounded retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	appToken   string
	maxRetries int
	limiter    *rate.Limiter
}

// NewClient creates a feed client with the given options.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "crimengo/1.0"
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 5
	}
	if opts.Burst == 0 {
		opts.Burst = 5
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    opts.BaseURL,
		userAgent:  opts.UserAgent,
		appToken:   opts.AppToken,
		maxRetries: opts.MaxRetries,
		limiter:    rate.NewLimiter(opts.RateLimit, opts.Burst),
	}
}

// FetchLatest retrieves limit records ordered by date descending.
func (c *Client) FetchLatest(ctx context.Context, limit int) ([]model.Incident, error) {
	return c.fetchPage(ctx, limit, 0)
}

// FetchPaged retrieves total records in pages of pageSize, fetching pages
// concurrently. Results keep the feed's date-descending order.
func (c *Client) FetchPaged(ctx context.Context, total, pageSize int) ([]model.Incident, error) {
	if pageSize <= 0 || pageSize >= total {
		return c.FetchLatest(ctx, total)
	}

	numPages := (total + pageSize - 1) / pageSize
	pages := make([][]model.Incident, numPages)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := 0; i < numPages; i++ {
		g.Go(func() error {
			size := pageSize
			if rem := total - i*pageSize; rem < size {
				size = rem
			}
			recs, err := c.fetchPage(ctx, size, i*pageSize)
			if err != nil {
				return err
			}
			pages[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.Incident, 0, total)
	for _, page := range pages {
		out = append(out, page...)
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, limit, offset int) ([]model.Incident, error) {
	params := url.Values{
		"$limit": {strconv.Itoa(limit)},
		"$order": {"date DESC"},
	}
	if offset > 0 {
		params.Set("$offset", strconv.Itoa(offset))
	}
	reqURL := c.baseURL + "?" + params.Encode()

	body, err := c.getWithRetry(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var records []feedRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, eris.Wrap(err, "feed: parse response")
	}

	incidents := make([]model.Incident, 0, len(records))
	for _, rec := range records {
		incidents = append(incidents, rec.toIncident())
	}
	return incidents, nil
}

func (c *Client) getWithRetry(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "feed: retry wait")
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "feed: rate limit")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "feed: build request")
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		if c.appToken != "" {
			// Registered Socrata app tokens get a higher rate limit tier.
			req.Header.Set("X-App-Token", c.appToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = eris.Wrap(err, "feed: request")
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close() //nolint:errcheck

		switch {
		case resp.StatusCode == http.StatusOK && readErr == nil:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = eris.Errorf("feed: status %d", resp.StatusCode)
			zap.L().Warn("feed fetch retrying",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			continue
		case readErr != nil:
			lastErr = eris.Wrap(readErr, "feed: read body")
			continue
		default:
			return nil, eris.Errorf("feed: status %d", resp.StatusCode)
		}
	}
	return nil, eris.Wrapf(lastErr, "feed: giving up after %d attempts", c.maxRetries+1)
}

// feedRecord mirrors the Socrata JSON shape. Numeric fields arrive as
// strings; coordinates may be absent entirely.
type feedRecord struct {
	ID                  string `json:"id"`
	CaseNumber          string `json:"case_number"`
	Date                string `json:"date"`
	Block               string `json:"block"`
	IUCR                string `json:"iucr"`
	PrimaryType         string `json:"primary_type"`
	Description         string `json:"description"`
	LocationDescription string `json:"location_description"`
	Arrest              bool   `json:"arrest"`
	Domestic            bool   `json:"domestic"`
	Beat                string `json:"beat"`
	District            string `json:"district"`
	Ward                string `json:"ward"`
	CommunityArea       string `json:"community_area"`
	FBICode             string `json:"fbi_code"`
	Year                string `json:"year"`
	UpdatedOn           string `json:"updated_on"`
	Latitude            string `json:"latitude"`
	Longitude           string `json:"longitude"`
}

// socrataLayouts are the timestamp formats seen in the feed.
var socrataLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseFeedTime(s string) time.Time {
	for _, layout := range socrataLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func (r feedRecord) toIncident() model.Incident {
	in := model.Incident{
		ID:                  r.ID,
		CaseNumber:          r.CaseNumber,
		Date:                parseFeedTime(r.Date),
		Block:               r.Block,
		IUCR:                r.IUCR,
		PrimaryType:         r.PrimaryType,
		Description:         r.Description,
		LocationDescription: r.LocationDescription,
		Arrest:              r.Arrest,
		Domestic:            r.Domestic,
		Beat:                r.Beat,
		District:            r.District,
		Ward:                r.Ward,
		CommunityArea:       r.CommunityArea,
		FBICode:             r.FBICode,
		UpdatedOn:           parseFeedTime(r.UpdatedOn),
		Source:              model.SourceFeed,
	}
	if y, err := strconv.Atoi(r.Year); err == nil {
		in.Year = y
	}
	// Unparsable coordinates drop to nil; the record itself is kept.
	if lat, err := strconv.ParseFloat(r.Latitude, 64); err == nil {
		if lon, err := strconv.ParseFloat(r.Longitude, 64); err == nil {
			in.Latitude = &lat
			in.Longitude = &lon
			in.Location = "(" + r.Latitude + ", " + r.Longitude + ")"
		}
	}
	return in
}
