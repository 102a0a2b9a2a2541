// Package geocoding wraps the external address-search API. The client is
// stateless request/response; callers own debouncing, ordering and the
// soft-failure contract (errors degrade to empty results, never to the user).
package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"chantier_portal_backend/platform/config"
	"chantier_portal_backend/platform/logger"
)

const searchLimit = 5

// Client talks to the address API (BAN wire format).
type Client struct {
	searchURL  string
	reverseURL string
	httpClient *http.Client
	log        *logger.Logger
}

// New creates a geocoding client with the configured endpoints and timeout.
func New(cfg config.GeocodingConfig, log *logger.Logger) *Client {
	timeout := cfg.GetGeocodeTimeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		searchURL:  cfg.GetGeocodeSearchURL(),
		reverseURL: cfg.GetGeocodeReverseURL(),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Search performs a forward geocode of the free-text query. Results arrive in
// the API's relevance order (descending score); callers must not re-sort.
func (c *Client) Search(ctx context.Context, query string) ([]Candidate, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("limit", strconv.Itoa(searchLimit))

	collection, err := c.fetch(ctx, c.searchURL, params)
	if err != nil {
		c.log.GeocodeFailure("search", query, err)
		return nil, err
	}

	candidates := make([]Candidate, 0, len(collection.Features))
	for _, f := range collection.Features {
		candidate, ok := f.toCandidate()
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// Reverse resolves coordinates to the best-match address. Returns nil when the
// API has no feature for the point.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (*Candidate, error) {
	params := url.Values{}
	params.Add("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Add("lat", strconv.FormatFloat(lat, 'f', -1, 64))

	collection, err := c.fetch(ctx, c.reverseURL, params)
	if err != nil {
		c.log.GeocodeFailure("reverse", fmt.Sprintf("%f,%f", lat, lng), err)
		return nil, err
	}

	// Only the first feature is used.
	for _, f := range collection.Features {
		if candidate, ok := f.toCandidate(); ok {
			return &candidate, nil
		}
	}

	return nil, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) (featureCollection, error) {
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return featureCollection{}, err
	}

	req.Header.Set("User-Agent", "ChantierPortal/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return featureCollection{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return featureCollection{}, fmt.Errorf("upstream api error: %d", resp.StatusCode)
	}

	var collection featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return featureCollection{}, err
	}

	return collection, nil
}
