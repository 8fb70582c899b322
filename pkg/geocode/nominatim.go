package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/placescan/internal/resilience"
)

// nominatimResponse is the JSON response from the Nominatim reverse endpoint.
type nominatimResponse struct {
	Error   string `json:"error"`
	Address struct {
		CountryCode string `json:"country_code"`
		Country     string `json:"country"`
		State       string `json:"state"`
		Province    string `json:"province"`
		Region      string `json:"region"`
	} `json:"address"`
}

// ReverseGeocode resolves a coordinate via the /reverse endpoint. A response
// without a country code yields an empty placemark, not an error.
func (c *client) ReverseGeocode(ctx context.Context, lat, lon float64) (*Placemark, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"lat":    {strconv.FormatFloat(lat, 'f', 6, 64)},
		"lon":    {strconv.FormatFloat(lon, 'f', 6, 64)},
		"format": {"jsonv2"},
		"zoom":   {"5"}, // state-level detail is enough
	}

	reqURL := strings.TrimRight(c.baseURL, "/") + "/reverse?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: reverse returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var nr nominatimResponse
	if err := json.Unmarshal(body, &nr); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}

	// Nominatim reports "Unable to geocode" for open-ocean points.
	if nr.Error != "" || nr.Address.CountryCode == "" {
		return &Placemark{}, nil
	}

	admin := nr.Address.State
	if admin == "" {
		admin = nr.Address.Province
	}
	if admin == "" {
		admin = nr.Address.Region
	}

	return &Placemark{
		CountryCode:        strings.ToUpper(nr.Address.CountryCode),
		CountryName:        nr.Address.Country,
		AdministrativeArea: admin,
	}, nil
}
