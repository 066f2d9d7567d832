package render

// RenderOptions carry per-request data for field rendering without mutating
// the field itself.
type RenderOptions struct {
	// ID overrides the generated DOM id of the field root.
	ID string
	// Errors holds server-side validation messages keyed by dotted path
	// ("Photo", "Photo.Latitude"). See MapErrorPayload.
	Errors map[string][]string
	// Attributes are extra attributes written on the field root.
	Attributes map[string]string
	// Localizer translates the labels and placeholders emitted by the field.
	Localizer Localizer
}
