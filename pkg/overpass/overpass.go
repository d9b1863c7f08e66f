// Package overpass queries the Overpass API for businesses around a point.
// Several public mirrors are tried in random order and any upstream failure
// degrades to an empty result set so a search can still serve curated rows.
package overpass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/nearify/nearify-backend/pkg/geo"
	"github.com/nearify/nearify-backend/pkg/logger"
)

// DefaultEndpoints are the public Overpass mirrors.
var DefaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://overpass.nchc.org.tw/api/interpreter",
	"https://overpass.openstreetmap.ru/api/interpreter",
}

// Place is one business returned by an area search. Address components may
// be empty when neither the map data nor reverse geocoding could fill them.
type Place struct {
	OSMID   string
	Name    string
	Street  string
	City    string
	State   string
	ZipCode string
	Website string
	Phone   string
	Lat     float64
	Lon     float64
}

// ReverseGeocoder backfills missing address components from coordinates.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) geo.Address
}

// Client posts Overpass QL queries and normalizes the elements it gets back.
type Client struct {
	httpClient *http.Client
	endpoints  []string
	userAgent  string
	reverser   ReverseGeocoder
	limit      int
}

// NewClient creates an Overpass client. reverser may be nil to disable
// address backfill. limit caps the number of normalized places per search.
func NewClient(endpoints []string, userAgent string, reverser ReverseGeocoder, limit int) *Client {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}
	if limit <= 0 {
		limit = 40
	}
	return &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		endpoints:  endpoints,
		userAgent:  userAgent,
		reverser:   reverser,
		limit:      limit,
	}
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// Search finds businesses matching term within radiusM meters of the given
// point. Known category terms query by OSM tag, anything else falls back to
// a case-insensitive name match. Failures return an empty slice.
func (c *Client) Search(ctx context.Context, term string, lat, lon float64, radiusM int) []Place {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}

	query := buildQuery(term, lat, lon, radiusM)

	elements, err := c.post(ctx, query)
	if err != nil {
		logger.Warn("Overpass search failed on all endpoints", map[string]interface{}{
			"term":  term,
			"error": err.Error(),
		})
		return []Place{}
	}

	return c.normalize(ctx, term, elements)
}

func (c *Client) post(ctx context.Context, query string) ([]overpassElement, error) {
	var lastErr error

	for _, endpoint := range shuffled(c.endpoints) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(query))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("overpass returned status %d", resp.StatusCode)
			continue
		}

		var parsed overpassResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			lastErr = err
			continue
		}
		return parsed.Elements, nil
	}

	return nil, lastErr
}

func (c *Client) normalize(ctx context.Context, term string, elements []overpassElement) []Place {
	places := make([]Place, 0, len(elements))
	seen := make(map[string]bool)

	for _, el := range elements {
		var lat, lon float64
		switch {
		case el.Lat != nil && el.Lon != nil:
			lat, lon = *el.Lat, *el.Lon
		case el.Center != nil:
			lat, lon = el.Center.Lat, el.Center.Lon
		default:
			continue
		}

		// Ways and relations can duplicate their member nodes.
		osmID := fmt.Sprintf("%s_%d", el.Type, el.ID)
		if seen[osmID] {
			continue
		}
		seen[osmID] = true

		tags := el.Tags
		name := strings.TrimSpace(tags["name"])
		if name == "" {
			name = titleCase(term)
		}

		place := Place{
			OSMID:   osmID,
			Name:    name,
			Street:  strings.TrimSpace(tags["addr:housenumber"] + " " + tags["addr:street"]),
			City:    firstTag(tags, "addr:city", "addr:suburb"),
			State:   tags["addr:state"],
			ZipCode: tags["addr:postcode"],
			Website: firstTag(tags, "website", "contact:website", "url"),
			Phone:   firstTag(tags, "phone", "contact:phone"),
			Lat:     lat,
			Lon:     lon,
		}

		if c.reverser != nil && (place.Street == "" || place.City == "" || place.State == "") {
			addr := c.reverser.Reverse(ctx, lat, lon)
			if place.Street == "" {
				place.Street = addr.Street
			}
			if place.City == "" {
				place.City = addr.City
			}
			if place.State == "" {
				place.State = addr.State
			}
			if place.ZipCode == "" {
				place.ZipCode = addr.ZipCode
			}
		}

		places = append(places, place)
		if len(places) >= c.limit {
			break
		}
	}

	return places
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}

func shuffled(endpoints []string) []string {
	out := make([]string, len(endpoints))
	copy(out, endpoints)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
