package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"carcatalog/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SearchResultLimit caps how many ranked results one query returns.
const SearchResultLimit = 20

// SearchResult is one ranked match. Type is brand, model or trim; brand/line
// context is attached so the dashboard can build its filter query from a
// selection.
type SearchResult struct {
	Type            string `json:"type"`
	ID              string `json:"id"`
	Name            string `json:"name"`
	BrandName       string `json:"brand_name"`
	VehicleLineName string `json:"vehicle_line_name,omitempty"`
	MatchScore      int    `json:"match_score"`
}

type SearchService interface {
	Search(ctx context.Context, versionID string, query string) ([]SearchResult, error)
}

type searchService struct {
	db *gorm.DB
}

func NewSearchService(db *gorm.DB) SearchService {
	return &searchService{db: db}
}

// Search runs a free-text lookup over the version's staging brands, models
// and trims. Results are scored (exact > prefix > substring), deduplicated by
// (type, id) and capped at SearchResultLimit.
func (s *searchService) Search(ctx context.Context, versionID string, query string) ([]SearchResult, error) {
	vid, err := uuid.Parse(versionID)
	if err != nil {
		return nil, fmt.Errorf("invalid version id: %w", err)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	pattern := "%" + strings.ToLower(query) + "%"

	var results []SearchResult

	// Brand matches
	var brands []model.Brand
	if err := s.db.WithContext(ctx).
		Where("version_id = ? AND realm = ? AND LOWER(name) LIKE ?", vid, model.RealmStaging, pattern).
		Limit(SearchResultLimit).
		Find(&brands).Error; err != nil {
		return nil, fmt.Errorf("brand search failed: %w", err)
	}
	for _, b := range brands {
		results = append(results, SearchResult{
			Type:       "brand",
			ID:         b.ID.String(),
			Name:       b.Name,
			BrandName:  b.Name,
			MatchScore: matchScore(b.Name, query),
		})
	}

	// Model matches, joined up to the brand for version scoping and context
	type modelRow struct {
		ID        string
		Name      string
		LineName  string
		BrandName string
	}
	var modelRows []modelRow
	if err := s.db.WithContext(ctx).
		Table("models").
		Select("models.id AS id, models.name AS name, vehicle_lines.name AS line_name, brands.name AS brand_name").
		Joins("JOIN vehicle_lines ON vehicle_lines.id = models.vehicle_line_id").
		Joins("JOIN brands ON brands.id = vehicle_lines.brand_id").
		Where("brands.version_id = ? AND brands.realm = ? AND LOWER(models.name) LIKE ?", vid, model.RealmStaging, pattern).
		Limit(SearchResultLimit).
		Scan(&modelRows).Error; err != nil {
		return nil, fmt.Errorf("model search failed: %w", err)
	}
	for _, m := range modelRows {
		results = append(results, SearchResult{
			Type:            "model",
			ID:              m.ID,
			Name:            m.Name,
			BrandName:       m.BrandName,
			VehicleLineName: m.LineName,
			MatchScore:      matchScore(m.Name, query),
		})
	}

	// Trim matches
	type trimRow struct {
		ID        string
		Name      string
		ModelName string
		LineName  string
		BrandName string
	}
	var trimRows []trimRow
	if err := s.db.WithContext(ctx).
		Table("trims").
		Select("trims.id AS id, trims.name AS name, models.name AS model_name, vehicle_lines.name AS line_name, brands.name AS brand_name").
		Joins("JOIN models ON models.id = trims.model_id").
		Joins("JOIN vehicle_lines ON vehicle_lines.id = models.vehicle_line_id").
		Joins("JOIN brands ON brands.id = vehicle_lines.brand_id").
		Where("brands.version_id = ? AND brands.realm = ? AND LOWER(trims.name) LIKE ?", vid, model.RealmStaging, pattern).
		Limit(SearchResultLimit).
		Scan(&trimRows).Error; err != nil {
		return nil, fmt.Errorf("trim search failed: %w", err)
	}
	for _, t := range trimRows {
		results = append(results, SearchResult{
			Type:            "trim",
			ID:              t.ID,
			Name:            t.Name,
			BrandName:       t.BrandName,
			VehicleLineName: t.LineName,
			MatchScore:      matchScore(t.Name, query),
		})
	}

	// Dedup by (type, id), keeping the highest score
	seen := make(map[string]bool, len(results))
	deduped := results[:0]
	for _, r := range results {
		key := r.Type + ":" + r.ID
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, r)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].MatchScore > deduped[j].MatchScore
	})

	if len(deduped) > SearchResultLimit {
		deduped = deduped[:SearchResultLimit]
	}
	return deduped, nil
}

// matchScore ranks how well a candidate name matches the query:
// exact 100, prefix 80, substring 60, otherwise 40 (matched another way,
// e.g. case folding differences).
func matchScore(name, query string) int {
	n := strings.ToLower(name)
	q := strings.ToLower(query)
	switch {
	case n == q:
		return 100
	case strings.HasPrefix(n, q):
		return 80
	case strings.Contains(n, q):
		return 60
	default:
		return 40
	}
}
