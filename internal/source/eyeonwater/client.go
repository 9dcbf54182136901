package eyeonwater

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aevon-lab/meterstats/internal/core/statistics"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	consumptionPath = "/api/2/residential/consumption?eow=True"

	// defaultParallelDays bounds concurrent day requests per fetch.
	defaultParallelDays = 4
	maxResponseBytes    = 8 << 20
)

var (
	// ErrUnauthorized is returned when the service rejects the API token.
	ErrUnauthorized = errors.New("eyeonwater: unauthorized")
	// ErrRateLimited is returned on HTTP 429.
	ErrRateLimited = errors.New("eyeonwater: rate limited")
)

var readingLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
}

// Client fetches hourly billing reads for one account. It implements storage.Source.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	parallelDays int
	now          func() time.Time
}

// NewClient creates a client. An empty token sends no Authorization header.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		httpClient:   &http.Client{Timeout: timeout},
		parallelDays: defaultParallelDays,
		now:          time.Now,
	}
}

// FetchHistory returns every hourly read of the last daysBack days, today included.
func (c *Client) FetchHistory(ctx context.Context, meterID string, daysBack int) ([]statistics.DataPoint, error) {
	if daysBack <= 0 {
		return nil, nil
	}
	today := truncateDay(c.now().UTC())
	days := make([]time.Time, 0, daysBack)
	for i := daysBack - 1; i >= 0; i-- {
		days = append(days, today.AddDate(0, 0, -i))
	}
	return c.fetchDays(ctx, meterID, days)
}

// FetchRange returns the reads of every day overlapping [start, end). Points
// outside the window are left for the caller to drop.
func (c *Client) FetchRange(ctx context.Context, meterID string, start, end time.Time) ([]statistics.DataPoint, error) {
	if !end.After(start) {
		return nil, nil
	}
	var days []time.Time
	for d := truncateDay(start.UTC()); d.Before(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return c.fetchDays(ctx, meterID, days)
}

func (c *Client) fetchDays(ctx context.Context, meterID string, days []time.Time) ([]statistics.DataPoint, error) {
	perDay := make([][]statistics.DataPoint, len(days))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelDays)
	for i, day := range days {
		i, day := i, day
		g.Go(func() error {
			points, err := c.fetchDay(gctx, meterID, day)
			if err != nil {
				return fmt.Errorf("fetch %s for meter %s: %w", day.Format(time.DateOnly), meterID, err)
			}
			perDay[i] = points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	points := lo.Flatten(perDay)
	slog.Debug("[EyeOnWater] Fetched readings", "meter_id", meterID, "days", len(days), "points", len(points))
	return points, nil
}

type consumptionQuery struct {
	Params map[string]interface{} `json:"params"`
	Query  map[string]interface{} `json:"query"`
}

type consumptionResponse struct {
	Hit struct {
		Timezone []string `json:"meter.timezone"`
	} `json:"hit"`
	Timeseries map[string]struct {
		Series []struct {
			Date        string      `json:"date"`
			BillRead    interface{} `json:"bill_read"`
			DisplayUnit string      `json:"display_unit"`
		} `json:"series"`
	} `json:"timeseries"`
}

func (c *Client) fetchDay(ctx context.Context, meterID string, day time.Time) ([]statistics.DataPoint, error) {
	body, err := json.Marshal(consumptionQuery{
		Params: map[string]interface{}{
			"source":          "barnacle",
			"aggregate":       "hourly",
			"units":           "GAL",
			"combine":         "true",
			"perspective":     "billing",
			"display_minutes": true,
			"display_hours":   true,
			"display_days":    true,
			"date":            day.Format("01/02/2006"),
			"furthest_zoom":   "hr",
			"display_weeks":   true,
		},
		Query: map[string]interface{}{
			"query": map[string]interface{}{
				"terms": map[string]interface{}{"meter.meter_uuid": []string{meterID}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+consumptionPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request consumption: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	dec.UseNumber()
	var payload consumptionResponse
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode consumption: %w", err)
	}
	return parseSeries(meterID, payload)
}

// parseSeries converts one day of the response. A missing series is an empty day.
func parseSeries(meterID string, payload consumptionResponse) ([]statistics.DataPoint, error) {
	ts, ok := payload.Timeseries[meterID+",0"]
	if !ok {
		return nil, nil
	}

	loc := time.UTC
	if len(payload.Hit.Timezone) > 0 && payload.Hit.Timezone[0] != "" {
		l, err := time.LoadLocation(payload.Hit.Timezone[0])
		if err != nil {
			return nil, fmt.Errorf("meter timezone %q: %w", payload.Hit.Timezone[0], err)
		}
		loc = l
	}

	points := make([]statistics.DataPoint, 0, len(ts.Series))
	for _, s := range ts.Series {
		at, err := parseReadingTime(s.Date, loc)
		if err != nil {
			return nil, err
		}
		reading, err := extractDecimal(s.BillRead)
		if err != nil {
			return nil, fmt.Errorf("reading at %s: %w", s.Date, err)
		}
		points = append(points, statistics.DataPoint{
			Timestamp: at.UTC(),
			Reading:   reading,
			Unit:      strings.ToUpper(strings.TrimSpace(s.DisplayUnit)),
		})
	}
	return points, nil
}

func parseReadingTime(raw string, loc *time.Location) (time.Time, error) {
	for _, layout := range readingLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized reading date %q", raw)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
