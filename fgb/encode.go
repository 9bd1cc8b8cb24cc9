package fgb

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"sort"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Write serializes a feature collection as FlatGeobuf with a packed spatial
// index. The column schema is inferred from the feature properties; property
// values of kinds this package does not encode are written as their JSON
// text in a String column.
func Write(w io.Writer, fc *geojson.FeatureCollection, name string) error {
	if fc == nil || len(fc.Features) == 0 {
		return ErrNoFeatures
	}
	withGeometry := 0
	for _, f := range fc.Features {
		if f != nil && f.Geometry != nil {
			withGeometry++
		}
	}
	if withGeometry == 0 {
		return ErrMissingGeometry
	}

	geomType := collectionGeometryType(fc.Features)
	columns, order := inferColumns(fc.Features)

	builder := flatbuffers.NewBuilder(4096)
	header := writer.NewHeader(builder)
	header.SetGeometryType(geomType)
	if name != "" {
		header.SetName(name)
	}

	var cols []*writer.Column
	for _, c := range columns {
		col := writer.NewColumn(builder)
		col.SetName(c.name)
		col.SetTitle(c.name)
		col.SetType(c.typ)
		col.SetNullable(true)
		cols = append(cols, col)
	}
	if len(cols) > 0 {
		header.SetColumns(cols)
	}

	gen := &featureGenerator{features: fc.Features, columns: columns, index: order}
	fgbWriter := writer.NewWriter(header, true, gen, nil)
	_, err := fgbWriter.Write(w)
	return err
}

// column pairs a property name with its inferred FlatGeobuf type.
type column struct {
	name string
	typ  flattypes.ColumnType
}

// inferColumns scans every feature's properties and derives an ordered
// column schema, promoting conflicting value kinds to the more general type.
func inferColumns(features []*geojson.Feature) ([]column, map[string]int) {
	types := map[string]flattypes.ColumnType{}
	var names []string
	for _, f := range features {
		for name, value := range f.Properties {
			t := valueType(value)
			prev, seen := types[name]
			if !seen {
				names = append(names, name)
				types[name] = t
				continue
			}
			types[name] = promote(prev, t)
		}
	}
	// Property map iteration order is random; keep the schema deterministic.
	sort.Strings(names)

	cols := make([]column, 0, len(names))
	index := make(map[string]int, len(names))
	for i, name := range names {
		cols = append(cols, column{name: name, typ: types[name]})
		index[name] = i
	}
	return cols, index
}

func valueType(v interface{}) flattypes.ColumnType {
	switch n := v.(type) {
	case bool:
		return flattypes.ColumnTypeBool
	case int8, int16, int32:
		return flattypes.ColumnTypeInt
	case int:
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return flattypes.ColumnTypeInt
		}
		return flattypes.ColumnTypeLong
	case int64, uint, uint32, uint64:
		return flattypes.ColumnTypeLong
	case float32, float64:
		return flattypes.ColumnTypeDouble
	case json.Number:
		if _, err := n.Int64(); err == nil {
			return flattypes.ColumnTypeLong
		}
		return flattypes.ColumnTypeDouble
	case string:
		return flattypes.ColumnTypeString
	}
	return flattypes.ColumnTypeString
}

// promote picks the more general of two column types for a name seen with
// conflicting value kinds.
func promote(a, b flattypes.ColumnType) flattypes.ColumnType {
	if a == b {
		return a
	}
	rank := func(t flattypes.ColumnType) int {
		switch t {
		case flattypes.ColumnTypeBool:
			return 0
		case flattypes.ColumnTypeInt:
			return 1
		case flattypes.ColumnTypeLong:
			return 2
		case flattypes.ColumnTypeDouble:
			return 3
		}
		return 4 // String absorbs everything else
	}
	if rank(a) > rank(b) {
		return a
	}
	return b
}

// featureGenerator feeds features to the FlatGeobuf writer one at a time.
type featureGenerator struct {
	features []*geojson.Feature
	columns  []column
	index    map[string]int
	pos      int
}

func (g *featureGenerator) Generate() *writer.Feature {
	for g.pos < len(g.features) {
		f := g.features[g.pos]
		g.pos++
		if f == nil || f.Geometry == nil {
			continue
		}
		builder := flatbuffers.NewBuilder(1024)
		geom := encodeGeometry(f.Geometry, builder)
		if geom == nil {
			continue
		}
		feature := writer.NewFeature(builder)
		feature.SetGeometry(geom)
		if props := encodeProperties(f.Properties, g.columns, g.index); len(props) > 0 {
			feature.SetProperties(props)
		}
		return feature
	}
	return nil
}

// encodeGeometry converts an orb geometry into a FlatGeobuf writer geometry.
// Nil for geometry kinds the format cannot express.
func encodeGeometry(g orb.Geometry, builder *flatbuffers.Builder) *writer.Geometry {
	out := writer.NewGeometry(builder)
	switch v := g.(type) {
	case orb.Point:
		out.SetType(flattypes.GeometryTypePoint)
		out.SetXY([]float64{v[0], v[1]})
	case orb.MultiPoint:
		out.SetType(flattypes.GeometryTypeMultiPoint)
		out.SetXY(flattenPoints(v))
	case orb.LineString:
		out.SetType(flattypes.GeometryTypeLineString)
		out.SetXY(flattenPoints(v))
	case orb.MultiLineString:
		out.SetType(flattypes.GeometryTypeMultiLineString)
		xy, ends := flattenParts(v)
		out.SetXY(xy)
		out.SetEnds(ends)
	case orb.Ring:
		return encodeGeometry(orb.Polygon{v}, builder)
	case orb.Polygon:
		out.SetType(flattypes.GeometryTypePolygon)
		xy, ends := flattenParts(ringsOf(v))
		out.SetXY(xy)
		out.SetEnds(ends)
	case orb.MultiPolygon:
		out.SetType(flattypes.GeometryTypeMultiPolygon)
		parts := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			if p := encodeGeometry(poly, builder); p != nil {
				parts = append(parts, *p)
			}
		}
		out.SetParts(parts)
	case orb.Collection:
		out.SetType(flattypes.GeometryTypeGeometryCollection)
		parts := make([]writer.Geometry, 0, len(v))
		for _, member := range v {
			if p := encodeGeometry(member, builder); p != nil {
				parts = append(parts, *p)
			}
		}
		out.SetParts(parts)
	case orb.Bound:
		return encodeGeometry(v.ToPolygon(), builder)
	default:
		return nil
	}
	return out
}

func flattenPoints(pts []orb.Point) []float64 {
	xy := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		xy = append(xy, p[0], p[1])
	}
	return xy
}

func flattenParts(parts []orb.LineString) ([]float64, []uint32) {
	var xy []float64
	ends := make([]uint32, 0, len(parts))
	total := uint32(0)
	for _, part := range parts {
		xy = append(xy, flattenPoints(part)...)
		total += uint32(len(part))
		ends = append(ends, total)
	}
	return xy, ends
}

func ringsOf(poly orb.Polygon) []orb.LineString {
	out := make([]orb.LineString, 0, len(poly))
	for _, r := range poly {
		out = append(out, orb.LineString(r))
	}
	return out
}

// collectionGeometryType is the header geometry type: the shared type when
// homogeneous, Unknown for mixed collections.
func collectionGeometryType(features []*geojson.Feature) flattypes.GeometryType {
	t := flattypes.GeometryTypeUnknown
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		ft := geometryType(f.Geometry)
		if t == flattypes.GeometryTypeUnknown {
			t = ft
		} else if t != ft {
			return flattypes.GeometryTypeUnknown
		}
	}
	return t
}

func geometryType(g orb.Geometry) flattypes.GeometryType {
	switch g.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case orb.LineString:
		return flattypes.GeometryTypeLineString
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case orb.Ring, orb.Polygon, orb.Bound:
		return flattypes.GeometryTypePolygon
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	case orb.Collection:
		return flattypes.GeometryTypeGeometryCollection
	}
	return flattypes.GeometryTypeUnknown
}

// encodeProperties packs properties as [uint16 column index][value] pairs in
// column order.
func encodeProperties(props geojson.Properties, columns []column, index map[string]int) []byte {
	if len(props) == 0 || len(columns) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, col := range columns {
		value, ok := props[col.name]
		if !ok || value == nil {
			continue
		}
		idx := make([]byte, 2)
		binary.LittleEndian.PutUint16(idx, uint16(index[col.name]))
		buf.Write(idx)
		encodeValue(&buf, value, col.typ)
	}
	return buf.Bytes()
}

func encodeValue(buf *bytes.Buffer, value interface{}, t flattypes.ColumnType) {
	switch t {
	case flattypes.ColumnTypeBool:
		b := byte(0)
		if v, ok := value.(bool); ok && v {
			b = 1
		}
		buf.WriteByte(b)
	case flattypes.ColumnTypeInt:
		i, _ := asInt64(value)
		raw := make([]byte, 4)
		binary.LittleEndian.PutUint32(raw, uint32(int32(i)))
		buf.Write(raw)
	case flattypes.ColumnTypeLong:
		i, _ := asInt64(value)
		raw := make([]byte, 8)
		binary.LittleEndian.PutUint64(raw, uint64(i))
		buf.Write(raw)
	case flattypes.ColumnTypeDouble:
		f, _ := asFloat64(value)
		raw := make([]byte, 8)
		binary.LittleEndian.PutUint64(raw, math.Float64bits(f))
		buf.Write(raw)
	default:
		buf.WriteString(asString(value))
		buf.WriteByte(0)
	}
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	return 0, false
}

func asFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	}
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
