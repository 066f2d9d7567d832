package geofield

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-geofield/pkg/geodata"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// GeocodeResponse is the proxy payload. It follows the provider's response
// shape so the client controller can consume either.
type GeocodeResponse struct {
	Status  geodata.GeocodeStatus   `json:"status"`
	Results []geodata.GeocodeResult `json:"results"`
}

// Handler builds the geocode proxy handler with default options plus any
// overrides.
func Handler(fns ...OptionFn) http.Handler {
	return HandlerWithOptions(NewOptions(fns...))
}

// HandlerWithOptions builds the geocode proxy handler from a pre-built Options
// value.
func HandlerWithOptions(opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		if opts.Guard != nil {
			if err := opts.Guard(r); err != nil {
				writeGuardError(w, err)
				return
			}
		}

		address := strings.TrimSpace(r.URL.Query().Get(opts.AddressParam))
		if address == "" {
			http.Error(w, "missing "+opts.AddressParam+" parameter", http.StatusBadRequest)
			return
		}
		if opts.Geocoder == nil {
			opts.Logger.Error("geocode proxy has no geocoder configured")
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}

		results, status, err := opts.Geocoder.Geocode(r.Context(), address)
		if err != nil {
			opts.Logger.Warn("geocode proxy lookup failed",
				zap.String("address", address),
				zap.String("status", string(status)),
				zap.Error(err),
			)
			if status == "" {
				status = geodata.StatusError
			}
		}
		if results == nil {
			results = []geodata.GeocodeResult{}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}

		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(true)
		_ = enc.Encode(GeocodeResponse{Status: status, Results: results})
	})
}

func writeGuardError(w http.ResponseWriter, err error) {
	if w == nil {
		return
	}
	if err == nil {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		code = httpErr.StatusCode()
		if code <= 0 {
			code = http.StatusForbidden
		}
	}
	http.Error(w, http.StatusText(code), code)
}
