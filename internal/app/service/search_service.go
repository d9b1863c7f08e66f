package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/internal/app/repository"
	"github.com/nearify/nearify-backend/pkg/geo"
	"github.com/nearify/nearify-backend/pkg/logger"
	"github.com/nearify/nearify-backend/pkg/overpass"
	"github.com/nearify/nearify-backend/pkg/util"
	"gorm.io/gorm"
)

var ErrSearchMissingQuery = errors.New("both a business type and a location are required")

// PromotedBandSize caps the promoted band at the top of search results.
const PromotedBandSize = 5

// Area search radii in meters. The wider radius is only tried when the
// narrow one comes back empty.
const (
	searchRadiusM     = 8000
	searchRadiusWideM = 20000
)

// Geocoder resolves a location string to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*geo.Location, error)
}

// AreaSearcher finds businesses around a point.
type AreaSearcher interface {
	Search(ctx context.Context, term string, lat, lon float64, radiusM int) []overpass.Place
}

// SearchResult is one row of blended search output. Curated rows carry a
// ListingID; live rows carry only an ExternalID until they are imported.
type SearchResult struct {
	ListingID  uint   `json:"listing_id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`

	Name            string `json:"name"`
	Category        string `json:"category"`
	DisplayLocation string `json:"display_location"`
	Address         string `json:"address"`
	City            string `json:"city"`
	State           string `json:"state"`
	ZipCode         string `json:"zip_code"`
	MapsURL         string `json:"maps_url"`

	Phone    string `json:"phone"`
	Website  string `json:"website"`
	ImageURL string `json:"image_url"`

	Rating      float64            `json:"rating"`
	ReviewCount int                `json:"review_count"`
	Stars       util.StarBreakdown `json:"stars"`

	OwnerID  *uint  `json:"owner_id,omitempty"`
	Promoted bool   `json:"promoted"`
	Open     bool   `json:"open"`
	Source   string `json:"source"` // "curated" or "osm"
}

// SearchOutput is the full response for one search. Warning is set when a
// live-data stage degraded; curated results are still served in that case.
type SearchOutput struct {
	Promoted []SearchResult `json:"promoted"`
	Results  []SearchResult `json:"results"`
	Warning  string         `json:"warning,omitempty"`
}

type SearchService interface {
	Search(ctx context.Context, term, location string) (*SearchOutput, error)
}

type searchService struct {
	listingRepo repository.ListingRepository
	geocoder    Geocoder
	area        AreaSearcher
}

func NewSearchService(listingRepo repository.ListingRepository, geocoder Geocoder, area AreaSearcher) SearchService {
	return &searchService{
		listingRepo: listingRepo,
		geocoder:    geocoder,
		area:        area,
	}
}

// Search runs the blended pipeline: curated rows from the database first,
// then live OSM places around the geocoded location, then the promoted band.
// Live-data failures degrade to curated-only output with a warning rather
// than failing the whole search.
func (s *searchService) Search(ctx context.Context, term, location string) (*SearchOutput, error) {
	term = strings.TrimSpace(term)
	location = strings.TrimSpace(location)
	if term == "" || location == "" {
		return nil, ErrSearchMissingQuery
	}

	now := time.Now()
	out := &SearchOutput{}

	filter := repository.ListingFilter{Term: term, Location: location}

	curated, err := s.listingRepo.SearchCurated(filter)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for i := range curated {
		l := &curated[i]
		out.Results = append(out.Results, s.listingResult(l, "curated", now))
		if l.ExternalID != nil {
			seen[*l.ExternalID] = true
		}
	}

	// Live OSM stage.
	loc, err := s.geocoder.Geocode(ctx, location)
	switch {
	case errors.Is(err, geo.ErrBlocked):
		out.Warning = "Live results are unavailable right now."
		logger.Warn("Geocoding blocked during search", map[string]interface{}{"location": location})
	case errors.Is(err, geo.ErrNoResults):
		out.Warning = "Could not understand that location. Try something like 'Los Angeles, CA'."
	case err != nil:
		out.Warning = "Live results are temporarily unavailable."
		logger.Warn("Geocoding failed during search", map[string]interface{}{
			"location": location,
			"error":    err.Error(),
		})
	default:
		places := s.area.Search(ctx, term, loc.Lat, loc.Lon, searchRadiusM)
		if len(places) == 0 {
			places = s.area.Search(ctx, term, loc.Lat, loc.Lon, searchRadiusWideM)
		}
		for _, p := range places {
			externalID := "osm:" + p.OSMID
			if seen[externalID] {
				continue
			}
			seen[externalID] = true
			out.Results = append(out.Results, s.placeResult(p, term, externalID, now))
		}
	}

	// Promoted band, reconciled lazily.
	promoted, err := s.promotedBand(filter, now)
	if err != nil {
		return nil, err
	}
	out.Promoted = promoted

	logger.Debug("Search completed", map[string]interface{}{
		"term":     term,
		"location": location,
		"results":  len(out.Results),
		"promoted": len(out.Promoted),
	})
	return out, nil
}

// promotedBand selects up to PromotedBandSize promoted listings that are
// inside their window and currently open. Elapsed windows and holiday
// overrides discovered along the way are persisted before filtering.
func (s *searchService) promotedBand(filter repository.ListingFilter, now time.Time) ([]SearchResult, error) {
	candidates, err := s.listingRepo.FindPromotedCandidates(filter)
	if err != nil {
		return nil, err
	}

	band := make([]SearchResult, 0, PromotedBandSize)
	for i := range candidates {
		l := &candidates[i]

		promoted, dirty := l.EvaluatePromotion(now)
		if dirty {
			if err := s.listingRepo.UpdateFields(l.ID, map[string]interface{}{
				"is_active": l.IsActive,
				"priority":  l.Priority,
			}); err != nil {
				return nil, err
			}
		}
		if !promoted {
			continue
		}

		open, dirty := l.EvaluateAvailability(now)
		if dirty {
			if err := s.listingRepo.UpdateFields(l.ID, map[string]interface{}{
				"is_on_holiday": l.IsOnHoliday,
				"holiday_until": l.HolidayUntil,
				"holiday_note":  l.HolidayNote,
			}); err != nil {
				return nil, err
			}
		}
		if !open {
			continue
		}

		band = append(band, s.listingResult(l, "curated", now))
		if len(band) == PromotedBandSize {
			break
		}
	}
	return band, nil
}

func (s *searchService) listingResult(l *model.Listing, source string, now time.Time) SearchResult {
	open, _ := l.EvaluateAvailability(now)

	result := SearchResult{
		ListingID:       l.ID,
		Name:            l.Name,
		Category:        l.Category,
		DisplayLocation: util.BuildDisplayLocation(l.Address, l.City, l.State, l.ZipCode),
		Address:         l.Address,
		City:            l.City,
		State:           l.State,
		ZipCode:         l.ZipCode,
		MapsURL:         util.GoogleMapsURL(l.Address, l.City, l.State, l.ZipCode),
		Phone:           l.Phone,
		Website:         l.Website,
		ImageURL:        l.ImageURL,
		Rating:          l.Rating,
		ReviewCount:     l.ReviewCount,
		Stars:           util.StarsForRating(l.Rating),
		OwnerID:         l.OwnerID,
		Promoted:        l.IsPromotedNow(now),
		Open:            open,
		Source:          source,
	}
	if l.ExternalID != nil {
		result.ExternalID = *l.ExternalID
	}
	return result
}

// placeResult converts a live OSM place. If the place was previously
// imported its database record takes over, keeping ratings, promotion state
// and ownership attached to live rows.
func (s *searchService) placeResult(p overpass.Place, term, externalID string, now time.Time) SearchResult {
	if existing, err := s.listingRepo.FindByExternalID(externalID); err == nil {
		result := s.listingResult(existing, "osm", now)
		return result
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Warn("Failed to look up imported listing", map[string]interface{}{
			"external_id": externalID,
			"error":       err.Error(),
		})
	}

	name := p.Name
	if name == "" {
		name = "Unknown business"
	}

	return SearchResult{
		ExternalID:      externalID,
		Name:            name,
		Category:        term,
		DisplayLocation: util.BuildDisplayLocation(p.Street, p.City, p.State, p.ZipCode),
		Address:         p.Street,
		City:            p.City,
		State:           p.State,
		ZipCode:         p.ZipCode,
		MapsURL:         util.GoogleMapsURL(p.Street, p.City, p.State, p.ZipCode),
		Phone:           p.Phone,
		Website:         p.Website,
		Stars:           util.StarsForRating(0),
		Source:          "osm",
	}
}

// compile-time interface checks against the concrete clients
var (
	_ Geocoder     = (*geo.Client)(nil)
	_ AreaSearcher = (*overpass.Client)(nil)
)
