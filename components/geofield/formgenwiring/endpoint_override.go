// Package formgenwiring describes the geofield geocode proxy as a remote
// endpoint, in the shape form runtimes use for relationship-backed widgets.
package formgenwiring

import (
	"github.com/goliatone/go-geofield/components/geofield"
)

// EndpointMapping selects the value and label from each result.
type EndpointMapping struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// EndpointConfig describes a remote lookup endpoint.
type EndpointConfig struct {
	URL           string            `json:"url"`
	Method        string            `json:"method"`
	ResultsPath   string            `json:"resultsPath"`
	Params        map[string]string `json:"params,omitempty"`
	DynamicParams map[string]string `json:"dynamicParams,omitempty"`
	Mapping       EndpointMapping   `json:"mapping"`
}

// EndpointOverride binds an endpoint to a field of an operation.
type EndpointOverride struct {
	OperationID string         `json:"operationId"`
	FieldPath   string         `json:"fieldPath"`
	Endpoint    EndpointConfig `json:"endpoint"`
}

// GeocodeEndpointOverride returns the override for a geofield search input,
// using the geofield component defaults plus any provided overrides.
//
// The generated override:
// - points at <basePath><RoutePath> (default: <basePath>/api/geocode)
// - reads candidates from "results", formatted_address as label
// - sends the search text as the address param
func GeocodeEndpointOverride(operationID, fieldPath, basePath string, fns ...geofield.OptionFn) EndpointOverride {
	opts := geofield.NewOptions(fns...)
	url := geofield.MountPath(basePath, func(o *geofield.Options) {
		if o == nil {
			return
		}
		*o = opts
	})

	return EndpointOverride{
		OperationID: operationID,
		FieldPath:   fieldPath,
		Endpoint: EndpointConfig{
			URL:         url,
			Method:      "GET",
			ResultsPath: "results",
			DynamicParams: map[string]string{
				opts.AddressParam: "{{self}}",
			},
			Mapping: EndpointMapping{
				Value: "geometry.location",
				Label: "formatted_address",
			},
		},
	}
}
