// Package fgb reads and writes the FlatGeobuf format in terms of orb
// geometries and geojson features. It backs the vector package's FlatGeobuf
// dataset driver: reading yields a feature collection plus the column schema
// declared in the file header, writing serializes a collection with an
// inferred column schema and a packed spatial index.
package fgb

import "errors"

// Common errors returned by this package.
var (
	ErrNoFeatures      = errors.New("fgb: no features to write")
	ErrNoIndex         = errors.New("fgb: file has no spatial index")
	ErrMissingGeometry = errors.New("fgb: no feature carries a geometry")
	ErrNotIterable     = errors.New("fgb: file is not iterable without a spatial index")
)

// Column describes one property column declared in a FlatGeobuf header.
type Column struct {
	Name     string
	Type     string // FlatGeobuf column type name: "Bool", "Int", "Long", "Double", "String", ...
	Nullable bool
}

// Info is the decoded file header metadata.
type Info struct {
	Name         string
	Description  string
	GeometryType string
	FeatureCount uint64
	Envelope     [4]float64 // minX, minY, maxX, maxY
	HasIndex     bool
	Columns      []Column
}
