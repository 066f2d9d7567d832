package geocode

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/goliatone/go-geofield/pkg/geodata"
)

// Chain tries each geocoder in order and returns the first OK answer. When
// none succeeds the last status is returned together with every error.
type Chain []geodata.Geocoder

var _ geodata.Geocoder = Chain(nil)

// Geocode implements geodata.Geocoder.
func (c Chain) Geocode(ctx context.Context, address string) ([]geodata.GeocodeResult, geodata.GeocodeStatus, error) {
	status := geodata.StatusZeroResults
	var errs []error
	for i, g := range c {
		if g == nil {
			continue
		}
		results, st, err := g.Geocode(ctx, address)
		if err == nil && st == geodata.StatusOK && len(results) > 0 {
			return results, st, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
		status = st
		zap.L().Debug("geocoder in chain had no match",
			zap.Int("position", i),
			zap.String("address", address),
			zap.String("status", string(st)),
			zap.Error(err),
		)
	}
	if len(errs) > 0 && status == geodata.StatusOK {
		status = geodata.StatusError
	}
	return []geodata.GeocodeResult{}, status, errors.Join(errs...)
}
