package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/karvek/albion-scalper/internal/config"
	"github.com/karvek/albion-scalper/internal/models"
)

// Client talks to the marketplace data API over HTTP. All calls carry
// the configured timeout so a stalled upstream bounds the scan instead
// of hanging it.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
	logger     *logrus.Entry
}

// NewClient builds a client from the API configuration.
func NewClient(cfg *config.APIConfig, logger *logrus.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:     logger.WithField("component", "gateway"),
	}
}

// BaseURL returns the configured upstream base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchPrices retrieves the current price snapshot for the given items.
// Locations and qualities narrow the result; either may be empty for
// the upstream default.
func (c *Client) FetchPrices(ctx context.Context, items, locations []string, qualities []int) ([]models.PricePoint, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items requested", models.ErrInvalidRequest)
	}

	params := url.Values{}
	if len(locations) > 0 {
		params.Set("locations", strings.Join(locations, ","))
	}
	if len(qualities) > 0 {
		params.Set("qualities", joinInts(qualities))
	}

	path := "/prices/" + url.PathEscape(strings.Join(items, ","))

	var records []priceRecord
	if err := c.makeRequest(ctx, path, params, &records); err != nil {
		return nil, fmt.Errorf("%w: price fetch: %v", models.ErrDataUnavailable, err)
	}

	points := make([]models.PricePoint, 0, len(records))
	for _, r := range records {
		points = append(points, r.toModel())
	}

	c.logger.WithFields(logrus.Fields{
		"items":   len(items),
		"records": len(points),
	}).Debug("Fetched price snapshot")
	return points, nil
}

// FetchHistory retrieves bucketed trade-volume history for the given
// items at one quality tier.
func (c *Client) FetchHistory(ctx context.Context, items, locations []string, quality int, r HistoryRange) ([]models.ItemHistory, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items requested", models.ErrInvalidRequest)
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("%w: no locations requested", models.ErrInvalidRequest)
	}

	params := url.Values{}
	params.Set("date", r.Start.Format("2006-01-02"))
	params.Set("end_date", r.End.Format("2006-01-02"))
	params.Set("locations", strings.Join(locations, ","))
	params.Set("qualities", strconv.Itoa(quality))
	params.Set("time-scale", strconv.Itoa(r.TimeScale))

	path := "/history/" + url.PathEscape(strings.Join(items, ","))

	var records []historyRecord
	if err := c.makeRequest(ctx, path, params, &records); err != nil {
		return nil, fmt.Errorf("%w: history fetch: %v", models.ErrDataUnavailable, err)
	}

	histories := make([]models.ItemHistory, 0, len(records))
	for _, rec := range records {
		if rec.ItemID == "" || rec.Location == "" {
			c.logger.WithFields(logrus.Fields{
				"item":     rec.ItemID,
				"location": rec.Location,
			}).Warn("Skipping history entry with missing identity")
			continue
		}
		histories = append(histories, rec.toModel())
	}

	c.logger.WithFields(logrus.Fields{
		"items":   len(items),
		"entries": len(histories),
	}).Debug("Fetched trade history")
	return histories, nil
}

func (c *Client) makeRequest(ctx context.Context, path string, params url.Values, result interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "albion-scalper/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("Error closing response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("upstream error (%d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
