package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// searchRetryDelay is the fixed wait before the single retry on
// network-class search failures. Server-reported errors are not retried.
const searchRetryDelay = time.Second

// SearchResult is one ranked match tagged by kind.
type SearchResult struct {
	Type            string `json:"type"` // brand | model | trim
	ID              string `json:"id"`
	Name            string `json:"name"`
	BrandName       string `json:"brand_name"`
	VehicleLineName string `json:"vehicle_line_name"`
	MatchScore      int    `json:"match_score"`
}

// Search runs ranked free-text search over a version's staging tree. A
// transport failure is retried exactly once after a fixed delay; business
// errors surface immediately.
func (c *Client) Search(ctx context.Context, versionID, query string) ([]SearchResult, error) {
	path := "/api/staging/versions/" + versionID + "/search?q=" + url.QueryEscape(query)

	results, err := c.searchOnce(ctx, path)
	if err == nil {
		return results, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(searchRetryDelay):
	}

	return c.searchOnce(ctx, path)
}

func (c *Client) searchOnce(ctx context.Context, path string) ([]SearchResult, error) {
	var payload struct {
		Results []SearchResult `json:"results"`
	}
	// Search responses bypass the TTL cache: the query space is too wide for
	// reuse and stale hits are confusing mid-typing.
	raw, err := c.roundTrip(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	if err := decodeData(raw, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// SelectionQuery renders a picked result as the URL query parameter that
// drives the filtered hierarchy view.
func SelectionQuery(r SearchResult) string {
	if r.BrandName != "" && r.Type != "brand" {
		return fmt.Sprintf("brand:%s+%s:%s", r.BrandName, r.Type, r.Name)
	}
	return fmt.Sprintf("%s:%s", r.Type, r.Name)
}
