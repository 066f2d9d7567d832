// Package render holds the rendering helpers shared by geofield markup:
// hidden child inputs, page asset aggregation, server error mapping and
// label localization.
package render
