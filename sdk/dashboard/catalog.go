package dashboard

import (
	"context"
	"fmt"
	"net/url"
)

// Catalog entity shapes as the server reports them. Children are present only
// on deep fetches.
type Brand struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Country      string        `json:"country"`
	LogoURL      string        `json:"logo_url"`
	Manager      string        `json:"manager"`
	VehicleLines []VehicleLine `json:"vehicle_lines"`
}

type VehicleLine struct {
	ID          string     `json:"id"`
	BrandID     string     `json:"brand_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Brand       *Brand     `json:"brand"`
	Models      []CarModel `json:"models"`
}

type CarModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	ReleaseYear int    `json:"release_year"`
	Price       string `json:"price"`
	Trims       []Trim `json:"trims"`
}

type Trim struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	CarType   string   `json:"car_type"`
	FuelName  string   `json:"fuel_name"`
	CC        int      `json:"cc"`
	BasePrice string   `json:"base_price"`
	Options   []Option `json:"options"`
}

type Option struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Code            string `json:"code"`
	Category        string `json:"category"`
	Price           string `json:"price"`
	DiscountedPrice string `json:"discounted_price"`
}

// BrandPage is the brand-centric loading envelope.
type BrandPage struct {
	Brands     []Brand    `json:"brands"`
	Pagination Pagination `json:"pagination"`
}

// VehicleLinePage is the line-centric loading envelope: each line carries its
// own brand and subtree.
type VehicleLinePage struct {
	VehicleLines []VehicleLine `json:"vehicle_lines"`
	Pagination   Pagination    `json:"pagination"`
}

// ListStagingBrands fetches one brand page from a version's staging tree.
// deep nests the full line/model/trim/option subtree per brand.
func (c *Client) ListStagingBrands(ctx context.Context, versionID string, page, limit int, deep bool) (*BrandPage, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))
	q.Set("deep", fmt.Sprint(deep))

	var result BrandPage
	if err := c.get(ctx, "/api/staging/versions/"+versionID+"/brands?"+q.Encode(), &result); err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	return &result, nil
}

// ListStagingVehicleLines fetches one line-centric page.
func (c *Client) ListStagingVehicleLines(ctx context.Context, versionID string, page, limit int) (*VehicleLinePage, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))

	var result VehicleLinePage
	if err := c.get(ctx, "/api/staging/versions/"+versionID+"/vehicle-lines?"+q.Encode(), &result); err != nil {
		return nil, fmt.Errorf("list vehicle lines: %w", err)
	}
	return &result, nil
}

// ListMainBrands fetches one page of the read-only main mirror.
func (c *Client) ListMainBrands(ctx context.Context, page, limit int) (*BrandPage, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))

	var result BrandPage
	if err := c.get(ctx, "/api/main-db/brands?"+q.Encode(), &result); err != nil {
		return nil, fmt.Errorf("list main brands: %w", err)
	}
	return &result, nil
}

// BrandLoader returns an infinite loader over a version's staging brands.
func (c *Client) BrandLoader(versionID string, limit int) *InfiniteLoader[Brand] {
	return NewInfiniteLoader(
		func(ctx context.Context, page int) ([]Brand, Pagination, error) {
			result, err := c.ListStagingBrands(ctx, versionID, page, limit, true)
			if err != nil {
				return nil, Pagination{}, err
			}
			return result.Brands, result.Pagination, nil
		},
		func(b Brand) string { return b.ID },
	)
}

// VehicleLineLoader returns an infinite loader over a version's staging lines.
func (c *Client) VehicleLineLoader(versionID string, limit int) *InfiniteLoader[VehicleLine] {
	return NewInfiniteLoader(
		func(ctx context.Context, page int) ([]VehicleLine, Pagination, error) {
			result, err := c.ListStagingVehicleLines(ctx, versionID, page, limit)
			if err != nil {
				return nil, Pagination{}, err
			}
			return result.VehicleLines, result.Pagination, nil
		},
		func(l VehicleLine) string { return l.ID },
	)
}
