package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-geofield/pkg/geodata"
)

// GoogleGeocodeURL is the Geocoding API endpoint.
const GoogleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Google geocodes through the Google Geocoding API. API statuses are passed
// through; transport and decoding failures return geodata.StatusError.
type Google struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	endpoint   string
	apiKey     string
	language   string
	logger     *zap.Logger
}

var _ geodata.Geocoder = (*Google)(nil)

type googleResponse struct {
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
	Results      []googleResult `json:"results"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// Geocode implements geodata.Geocoder.
func (g *Google) Geocode(ctx context.Context, address string) ([]geodata.GeocodeResult, geodata.GeocodeStatus, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, geodata.StatusInvalidRequest, nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, geodata.StatusError, eris.Wrap(err, "geocode: google rate limit")
	}

	params := url.Values{"address": {address}}
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}
	if g.language != "" {
		params.Set("language", g.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, geodata.StatusError, eris.Wrap(err, "geocode: google build request")
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, geodata.StatusError, eris.Wrap(err, "geocode: google request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, geodata.StatusError, eris.Errorf("geocode: google returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, geodata.StatusError, eris.Wrap(err, "geocode: google read body")
	}

	var payload googleResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, geodata.StatusError, eris.Wrap(err, "geocode: google parse response")
	}

	status := geodata.GeocodeStatus(payload.Status)
	if status == "" {
		status = geodata.StatusUnknownError
	}
	if status != geodata.StatusOK {
		g.logger.Debug("google geocode returned no match",
			zap.String("address", address),
			zap.String("status", string(status)),
			zap.String("message", payload.ErrorMessage),
		)
		return []geodata.GeocodeResult{}, status, nil
	}

	results := make([]geodata.GeocodeResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		results = append(results, geodata.GeocodeResult{
			Geometry: geodata.Geometry{
				Location:     geodata.LatLng{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
				LocationType: strings.ToUpper(r.Geometry.LocationType),
			},
			FormattedAddress: r.FormattedAddress,
		})
	}
	if len(results) == 0 {
		return results, geodata.StatusZeroResults, nil
	}
	return results, geodata.StatusOK, nil
}
