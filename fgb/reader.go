package fgb

import (
	"math"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Reader provides read access to one FlatGeobuf file. Files read from disk
// are memory-mapped by the underlying library.
type Reader struct {
	src *flatgeobuf.FlatGeoBuf
}

// OpenFile opens a FlatGeobuf file from a path.
func OpenFile(path string) (*Reader, error) {
	src, err := flatgeobuf.New(path)
	if err != nil {
		return nil, err
	}
	return &Reader{src: src}, nil
}

// NewReader opens a FlatGeobuf file held in memory.
func NewReader(data []byte) (*Reader, error) {
	src, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, err
	}
	return &Reader{src: src}, nil
}

// Info decodes the file header metadata, including the column schema.
func (r *Reader) Info() *Info {
	h := r.src.Header()
	if h == nil {
		return nil
	}

	info := &Info{
		Name:         string(h.Name()),
		Description:  string(h.Description()),
		GeometryType: flattypes.EnumNamesGeometryType[h.GeometryType()],
		FeatureCount: h.FeaturesCount(),
		HasIndex:     h.IndexNodeSize() > 0,
	}
	if h.EnvelopeLength() >= 4 {
		info.Envelope = [4]float64{h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3)}
	}
	for i := 0; i < h.ColumnsLength(); i++ {
		var col flattypes.Column
		if h.Columns(&col, i) {
			info.Columns = append(info.Columns, Column{
				Name:     string(col.Name()),
				Type:     flattypes.EnumNamesColumnType[col.Type()],
				Nullable: col.Nullable(),
			})
		}
	}
	return info
}

// ReadAll reads every feature in the file. Iteration goes through the
// packed spatial index with an unbounded query, so headers with an absent
// or stale envelope still read completely; a file without an index cannot
// be iterated by the underlying library and reports ErrNotIterable.
func (r *Reader) ReadAll() (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	h := r.src.Header()
	if h == nil {
		return fc, nil
	}
	if h.IndexNodeSize() == 0 {
		if h.FeaturesCount() == 0 {
			return fc, nil
		}
		return nil, ErrNotIterable
	}
	hits, err := r.src.Search(-math.MaxFloat64, -math.MaxFloat64, math.MaxFloat64, math.MaxFloat64)
	if err != nil {
		return nil, err
	}
	for _, hit := range hits {
		if f := decodeFeature(hit, h); f != nil {
			fc.Append(f)
		}
	}
	return fc, nil
}

// Search returns the features whose bounding boxes intersect the query
// bounds, using the file's packed spatial index.
func (r *Reader) Search(bounds orb.Bound) (*geojson.FeatureCollection, error) {
	h := r.src.Header()
	if h == nil || h.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}
	hits, err := r.src.Search(bounds.Min[0], bounds.Min[1], bounds.Max[0], bounds.Max[1])
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for _, hit := range hits {
		if f := decodeFeature(hit, h); f != nil {
			fc.Append(f)
		}
	}
	return fc, nil
}
