// Package mapsync keeps a map marker, three mirrored form values and an
// optional geocoding search box consistent for one rendered geofield.
//
// A Controller binds to a Host (the rendered field) and drives the map through
// an injected Provider. Every handler runs to completion on a Dispatcher, so
// the coordinate state is never observed mid-update. Latitude and longitude
// are written through a single funnel that also marks the form as changed;
// zoom is written through a separate funnel that never does.
package mapsync
