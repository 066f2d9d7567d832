package geofield

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-geofield/pkg/geodata"
)

func stubGeocoder(calls *[]string) geodata.Geocoder {
	return geodata.GeocoderFunc(func(_ context.Context, address string) ([]geodata.GeocodeResult, geodata.GeocodeStatus, error) {
		*calls = append(*calls, address)
		switch address {
		case "wellington":
			return []geodata.GeocodeResult{{
				Geometry:         geodata.Geometry{Location: geodata.LatLng{Lat: -41.28, Lng: 174.77}},
				FormattedAddress: "Wellington, New Zealand",
			}}, geodata.StatusOK, nil
		case "offline":
			return nil, geodata.StatusError, errors.New("dial tcp: refused")
		default:
			return nil, geodata.StatusZeroResults, nil
		}
	})
}

func TestHandler_ProxiesGeocoder(t *testing.T) {
	var calls []string
	h := Handler(WithGeocoder(stubGeocoder(&calls)))

	req := httptest.NewRequest(http.MethodGet, "/api/geocode?address=+wellington+", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.StatusCode)
	}
	if ct := strings.TrimSpace(res.Header.Get("Content-Type")); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON content-type, got %q", ct)
	}

	var payload GeocodeResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	want := GeocodeResponse{
		Status: geodata.StatusOK,
		Results: []geodata.GeocodeResult{{
			Geometry:         geodata.Geometry{Location: geodata.LatLng{Lat: -41.28, Lng: 174.77}},
			FormattedAddress: "Wellington, New Zealand",
		}},
	}
	if diff := cmp.Diff(want, payload); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"wellington"}, calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestHandler_NonOKStatusesReturnEmptyResults(t *testing.T) {
	var calls []string
	h := Handler(WithGeocoder(stubGeocoder(&calls)), WithAddressParam("q"))

	for address, status := range map[string]geodata.GeocodeStatus{
		"nowhere": geodata.StatusZeroResults,
		"offline": geodata.StatusError,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/geocode?q="+address, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		var payload GeocodeResponse
		if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
			t.Fatalf("decode %s: %v", address, err)
		}
		if payload.Status != status {
			t.Fatalf("%s: expected status %s, got %s", address, status, payload.Status)
		}
		if payload.Results == nil || len(payload.Results) != 0 {
			t.Fatalf("%s: expected empty results array, got %#v", address, payload.Results)
		}
	}
}

func TestHandler_RejectsBadRequests(t *testing.T) {
	var calls []string
	h := Handler(WithGeocoder(stubGeocoder(&calls)))

	cases := []struct {
		method string
		target string
		code   int
	}{
		{method: http.MethodPost, target: "/api/geocode?address=x", code: http.StatusMethodNotAllowed},
		{method: http.MethodGet, target: "/api/geocode", code: http.StatusBadRequest},
		{method: http.MethodGet, target: "/api/geocode?address=%20%20", code: http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))
		if rec.Code != tc.code {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.target, tc.code, rec.Code)
		}
	}
	if len(calls) != 0 {
		t.Fatalf("expected no geocoder calls, got %#v", calls)
	}
}

func TestHandler_HeadWritesNoBody(t *testing.T) {
	var calls []string
	h := Handler(WithGeocoder(stubGeocoder(&calls)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/api/geocode?address=wellington", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("unexpected HEAD response %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandler_GuardAndMissingGeocoder(t *testing.T) {
	guarded := Handler(WithGuard(func(*http.Request) error {
		return StatusError{Code: http.StatusUnauthorized}
	}))
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/geocode?address=x", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	plain := Handler(WithGuard(func(*http.Request) error { return errors.New("nope") }))
	rec = httptest.NewRecorder()
	plain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/geocode?address=x", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/geocode?address=x", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without geocoder, got %d", rec.Code)
	}
}
