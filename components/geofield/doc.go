// Package geofield provides a geolocation upload form field. A Field merges
// its options over the embedded defaults (config/defaults.yml), builds three
// hidden inputs mirroring latitude, longitude and zoom plus an optional
// search box, renders markup carrying the client settings payload, and
// writes the submitted values back to a record.
//
// The package also ships a small geocode proxy handler (Component) so the
// client can resolve addresses without exposing a provider key.
package geofield
