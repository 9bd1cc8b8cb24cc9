package fgb

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// decodeFeature converts one FlatGeobuf feature into a geojson feature,
// decoding its properties against the header's column schema. Nil when the
// feature has no decodable geometry.
func decodeFeature(src *flattypes.Feature, header *flattypes.Header) *geojson.Feature {
	if src == nil {
		return nil
	}
	var geomTable flattypes.Geometry
	if src.Geometry(&geomTable) == nil {
		return nil
	}
	geom := decodeGeometry(&geomTable)
	if geom == nil {
		return nil
	}

	f := geojson.NewFeature(geom)
	if n := src.PropertiesLength(); n > 0 && header.ColumnsLength() > 0 {
		raw := make([]byte, n)
		for i := 0; i < n; i++ {
			raw[i] = byte(src.Properties(i))
		}
		f.Properties = decodeProperties(raw, header)
	}
	return f
}

// decodeGeometry converts a FlatGeobuf geometry table to an orb geometry.
func decodeGeometry(g *flattypes.Geometry) orb.Geometry {
	switch g.Type() {
	case flattypes.GeometryTypePoint:
		pts := xyPoints(g)
		if len(pts) == 0 {
			return orb.Point{}
		}
		return pts[0]
	case flattypes.GeometryTypeMultiPoint:
		return orb.MultiPoint(xyPoints(g))
	case flattypes.GeometryTypeLineString:
		return orb.LineString(xyPoints(g))
	case flattypes.GeometryTypeMultiLineString:
		parts := splitAtEnds(g)
		mls := make(orb.MultiLineString, 0, len(parts))
		for _, p := range parts {
			mls = append(mls, orb.LineString(p))
		}
		return mls
	case flattypes.GeometryTypePolygon:
		return polygonFrom(g)
	case flattypes.GeometryTypeMultiPolygon:
		n := g.PartsLength()
		if n == 0 {
			return orb.MultiPolygon{polygonFrom(g)}
		}
		mp := make(orb.MultiPolygon, 0, n)
		for i := 0; i < n; i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				mp = append(mp, polygonFrom(&part))
			}
		}
		return mp
	case flattypes.GeometryTypeGeometryCollection:
		n := g.PartsLength()
		coll := make(orb.Collection, 0, n)
		for i := 0; i < n; i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				if member := decodeGeometry(&part); member != nil {
					coll = append(coll, member)
				}
			}
		}
		return coll
	}
	return nil
}

// xyPoints reads the flat xy array into points.
func xyPoints(g *flattypes.Geometry) []orb.Point {
	n := g.XyLength()
	pts := make([]orb.Point, 0, n/2)
	for i := 0; i+1 < n; i += 2 {
		pts = append(pts, orb.Point{g.Xy(i), g.Xy(i + 1)})
	}
	return pts
}

// splitAtEnds cuts the xy array at the cumulative end offsets. Without an
// ends array the whole thing is a single part.
func splitAtEnds(g *flattypes.Geometry) [][]orb.Point {
	pts := xyPoints(g)
	n := g.EndsLength()
	if n == 0 {
		return [][]orb.Point{pts}
	}
	parts := make([][]orb.Point, 0, n)
	start := uint32(0)
	for i := 0; i < n; i++ {
		end := g.Ends(i)
		if int(end) > len(pts) {
			end = uint32(len(pts))
		}
		parts = append(parts, pts[start:end])
		start = end
	}
	return parts
}

func polygonFrom(g *flattypes.Geometry) orb.Polygon {
	parts := splitAtEnds(g)
	poly := make(orb.Polygon, 0, len(parts))
	for _, p := range parts {
		poly = append(poly, orb.Ring(p))
	}
	return poly
}

// decodeProperties unpacks the [column index, value] pair stream against the
// header schema. Decoding stops at the first column type this package does
// not encode.
func decodeProperties(data []byte, header *flattypes.Header) geojson.Properties {
	props := make(geojson.Properties)
	offset := 0
	for offset+2 <= len(data) {
		idx := int(binary.LittleEndian.Uint16(data[offset : offset+2]))
		offset += 2
		if idx >= header.ColumnsLength() {
			break
		}
		var col flattypes.Column
		if !header.Columns(&col, idx) {
			break
		}
		value, n := decodeValue(data[offset:], col.Type())
		if n == 0 {
			break
		}
		offset += n
		props[string(col.Name())] = value
	}
	return props
}

// decodeValue reads one value, returning it and the bytes consumed. Zero
// consumed bytes signals an undecodable column type or truncated data.
func decodeValue(data []byte, t flattypes.ColumnType) (interface{}, int) {
	switch t {
	case flattypes.ColumnTypeBool:
		if len(data) < 1 {
			return nil, 0
		}
		return data[0] != 0, 1
	case flattypes.ColumnTypeInt:
		if len(data) < 4 {
			return nil, 0
		}
		return int32(binary.LittleEndian.Uint32(data[:4])), 4
	case flattypes.ColumnTypeLong:
		if len(data) < 8 {
			return nil, 0
		}
		return int64(binary.LittleEndian.Uint64(data[:8])), 8
	case flattypes.ColumnTypeFloat:
		if len(data) < 4 {
			return nil, 0
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(data[:4])), 4
	case flattypes.ColumnTypeDouble:
		if len(data) < 8 {
			return nil, 0
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data[:8])), 8
	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime:
		end := bytes.IndexByte(data, 0)
		if end == -1 {
			return string(data), len(data)
		}
		return string(data[:end]), end + 1
	}
	return nil, 0
}
