// Package vector provides typed access to vector geospatial datasets: layers
// of features carrying a geometry and schema-typed attribute fields.
//
// The package wraps the handle-based engine in internal/engine and is built
// around an explicit ownership model. A Geometry either owns its underlying
// engine object (constructed standalone, released on Close), aliases memory
// owned by a parent (sub-geometries and feature geometries, for which Close
// is a no-op), or is still unbound (a feature's geometry before first
// access). Violating the ownership contract panics rather than returning an
// error: binding a handle twice, transferring a non-owned geometry, and a
// non-zero engine status on a create or attach operation are all programming
// errors.
//
// Recoverable conditions (a field name absent from the schema, the end of an
// iteration, a file that fails to open or decode) are reported as ordinary
// errors or nil results.
package vector

import "errors"

// Common errors returned by this package.
var (
	ErrFieldNotFound = errors.New("vector: field not found")
	ErrNoSuchLayer   = errors.New("vector: no such layer")
	ErrUnknownFormat = errors.New("vector: unknown dataset format")
	ErrDatasetClosed = errors.New("vector: dataset closed")
	ErrEmptyDataset  = errors.New("vector: dataset has no layers")
	ErrNotExportable = errors.New("vector: dataset cannot be exported to this format")
)
