// Package geo wraps the Nominatim API for forward and reverse geocoding.
// Nominatim's usage policy requires an identifying User-Agent and at most
// one request per second, so the client sleeps before every remote call
// and memoizes results in caller-supplied caches.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nearify/nearify-backend/pkg/cache"
	"github.com/nearify/nearify-backend/pkg/logger"
)

// politenessDelay keeps us under Nominatim's one request per second limit.
const politenessDelay = 1050 * time.Millisecond

var (
	// ErrBlocked means Nominatim rejected the request with 403. This almost
	// always means the User-Agent or contact email is missing or generic.
	ErrBlocked = errors.New("geocoding blocked: Nominatim requires a proper User-Agent and contact email, set OSM_USER_AGENT and OSM_CONTACT_EMAIL")

	// ErrNoResults means the query geocoded successfully but matched nothing.
	ErrNoResults = errors.New("no geocoding results for that location")
)

// Location is a successful forward geocode.
type Location struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Address is a best-effort reverse geocode. Missing components are empty.
type Address struct {
	Street  string
	City    string
	State   string
	ZipCode string
}

// Client talks to a Nominatim instance.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	contactEmail string

	geoCache *cache.TTLCache
	revCache *cache.TTLCache

	// sleep is swappable in tests so they do not pay the politeness delay.
	sleep func(time.Duration)
}

// NewClient creates a Nominatim client. The caches may be shared with other
// components but must not be nil.
func NewClient(baseURL, userAgent, contactEmail string, geoCache, revCache *cache.TTLCache) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		baseURL:      strings.TrimRight(baseURL, "/"),
		userAgent:    userAgent,
		contactEmail: contactEmail,
		geoCache:     geoCache,
		revCache:     revCache,
		sleep:        time.Sleep,
	}
}

type geocodeResult struct {
	loc *Location
	err error
}

type nominatimSearchItem struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves a free-form location string to coordinates. Blocked and
// empty outcomes are cached alongside successes so repeated searches for the
// same location do not hammer the upstream.
func (c *Client) Geocode(ctx context.Context, query string) (*Location, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, ErrNoResults
	}

	key := strings.ToLower(q)
	if v, ok := c.geoCache.Get(key); ok {
		cached := v.(geocodeResult)
		return cached.loc, cached.err
	}

	c.sleep(politenessDelay)

	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")
	if c.contactEmail != "" {
		params.Set("email", c.contactEmail)
	}

	body, status, err := c.get(ctx, c.baseURL+"/search?"+params.Encode())
	if err != nil {
		// Transport failures are not cached so the next search can retry.
		return nil, fmt.Errorf("geocoding failed: %w", err)
	}

	if status == http.StatusForbidden {
		c.geoCache.Set(key, geocodeResult{err: ErrBlocked})
		return nil, ErrBlocked
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("geocoding failed: nominatim returned status %d", status)
	}

	var items []nominatimSearchItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("geocoding failed: invalid response: %w", err)
	}
	if len(items) == 0 {
		c.geoCache.Set(key, geocodeResult{err: ErrNoResults})
		return nil, ErrNoResults
	}

	lat, latErr := strconv.ParseFloat(items[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(items[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return nil, fmt.Errorf("geocoding failed: invalid coordinates in response")
	}

	display := items[0].DisplayName
	if display == "" {
		display = q
	}

	loc := &Location{Lat: lat, Lon: lon, DisplayName: display}
	c.geoCache.Set(key, geocodeResult{loc: loc})
	return loc, nil
}

type nominatimReverseResponse struct {
	Address struct {
		HouseNumber string `json:"house_number"`
		Road        string `json:"road"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		Suburb      string `json:"suburb"`
		State       string `json:"state"`
		Postcode    string `json:"postcode"`
	} `json:"address"`
}

// Reverse resolves coordinates to a street address. It is best effort and
// never fails: any upstream problem yields an empty Address. The cache key
// rounds coordinates to five decimals (about one meter) so nearby points
// share an entry.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) Address {
	key := fmt.Sprintf("%.5f,%.5f", lat, lon)
	if v, ok := c.revCache.Get(key); ok {
		return v.(Address)
	}

	c.sleep(politenessDelay)

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "jsonv2")
	params.Set("zoom", "18")
	params.Set("addressdetails", "1")
	if c.contactEmail != "" {
		params.Set("email", c.contactEmail)
	}

	body, status, err := c.get(ctx, c.baseURL+"/reverse?"+params.Encode())
	if err != nil || status != http.StatusOK {
		if err != nil {
			logger.Warn("Reverse geocoding failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return Address{}
	}

	var resp nominatimReverseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Address{}
	}

	a := resp.Address
	city := firstNonEmpty(a.City, a.Town, a.Village, a.Suburb)
	street := strings.TrimSpace(a.HouseNumber + " " + a.Road)

	out := Address{Street: street, City: city, State: a.State, ZipCode: a.Postcode}
	c.revCache.Set(key, out)
	return out
}

// SetSleep overrides the politeness delay. Test use only.
func (c *Client) SetSleep(sleep func(time.Duration)) {
	c.sleep = sleep
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
