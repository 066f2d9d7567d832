// Package template wraps a pongo2 template set behind the small Renderer
// contract used by the geofield component. Templates load from an fs.FS
// (usually an embed.FS) or a base directory on disk so callers can override
// the bundled markup.
package template
