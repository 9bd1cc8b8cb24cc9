package vector

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"

	"github.com/geodataio/layerkit/fgb"
	"github.com/geodataio/layerkit/internal/engine"
)

func openFlatGeobuf(path string) (*Dataset, error) {
	r, err := fgb.OpenFile(path)
	if err != nil {
		return nil, err
	}
	info := r.Info()
	if info == nil {
		return nil, fmt.Errorf("%w: %q has no header", ErrUnknownFormat, path)
	}
	name := info.Name
	if name == "" {
		name = layerNameFromPath(path)
	}

	fields := make([]FieldDefn, 0, len(info.Columns))
	for _, c := range info.Columns {
		fields = append(fields, FieldDefn{Name: c.Name, Type: columnFieldType(c.Type)})
	}

	ds := CreateDataset()
	ds.path = path
	layer := ds.CreateLayer(name, fields...)

	fc, err := r.ReadAll()
	if err != nil {
		ds.Close()
		return nil, err
	}
	for _, f := range fc.Features {
		loadFeature(layer, f)
	}
	log.Debug().Str("driver", "flatgeobuf").Str("path", path).
		Int("features", len(fc.Features)).Msg("dataset opened")
	return ds, nil
}

func openGeoJSON(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("vector: parse %s: %w", path, err)
	}

	ds := CreateDataset()
	ds.path = path
	layer := ds.CreateLayer(layerNameFromPath(path), inferFields(fc.Features)...)
	for _, f := range fc.Features {
		loadFeature(layer, f)
	}
	log.Debug().Str("driver", "geojson").Str("path", path).
		Int("features", len(fc.Features)).Msg("dataset opened")
	return ds, nil
}

// Export writes the first layer of the dataset to a file. As with Open the
// format is chosen by extension. FlatGeobuf holds a single layer per file,
// so multi-layer datasets must be exported one layer at a time through
// elsewhere-assembled collections.
func (ds *Dataset) Export(path string) error {
	if ds.handle == 0 {
		return ErrDatasetClosed
	}
	if len(ds.layers) == 0 {
		return ErrEmptyDataset
	}
	layer := ds.layers[0]
	fc := collectLayer(layer)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".fgb":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := fgb.Write(f, fc, layer.Name()); err != nil {
			return fmt.Errorf("%w: %v", ErrNotExportable, err)
		}
	case ".geojson", ".json":
		data, err := fc.MarshalJSON()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotExportable, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
	log.Debug().Str("path", path).Str("layer", layer.Name()).
		Int("features", len(fc.Features)).Msg("dataset exported")
	return nil
}

// loadFeature copies one decoded GeoJSON feature into an engine layer.
func loadFeature(l *Layer, f *geojson.Feature) {
	fh := engine.CreateFeature(engine.LayerDefn(l.handle))
	if f.Geometry != nil {
		gh := engine.CreateFromOrb(f.Geometry)
		if st := engine.SetGeometryDirectly(fh, gh); st != engine.StatusNone {
			panic(fmt.Sprintf("vector: set geometry: %s", st))
		}
	}
	for i, fd := range l.defn.Fields() {
		v, ok := f.Properties[fd.Name]
		if !ok || v == nil {
			continue
		}
		setField(fh, i, fd.Type, v)
	}
	if st := engine.LayerCreateFeature(l.handle, fh); st != engine.StatusNone {
		panic(fmt.Sprintf("vector: create feature: %s", st))
	}
	engine.DestroyFeature(fh)
}

func setField(fh engine.FeatureHandle, i int, t FieldType, v interface{}) {
	switch t {
	case FTInteger, FTInteger64:
		if n, ok := asInt64(v); ok {
			engine.SetFieldInteger64(fh, i, n)
		}
	case FTReal:
		if f, ok := asFloat64(v); ok {
			engine.SetFieldReal(fh, i, f)
		}
	default:
		engine.SetFieldString(fh, i, fmt.Sprint(v))
	}
}

// collectLayer drains a layer into a GeoJSON feature collection, leaving the
// layer's cursor reset.
func collectLayer(l *Layer) *geojson.FeatureCollection {
	fields := l.defn.Fields()
	fc := geojson.NewFeatureCollection()
	engine.ResetReading(l.handle)
	for {
		f := engine.NextFeature(l.handle)
		if f == 0 {
			break
		}
		var gf *geojson.Feature
		if gh := engine.FeatureGeometryRef(f); gh != 0 {
			gf = geojson.NewFeature(engine.ExportToOrb(gh))
		} else {
			gf = geojson.NewFeature(nil)
		}
		for i, fd := range fields {
			if !engine.FieldIsSet(f, i) {
				continue
			}
			switch fd.Type {
			case FTInteger, FTInteger64:
				gf.Properties[fd.Name] = engine.FieldAsInteger64(f, i)
			case FTReal:
				gf.Properties[fd.Name] = engine.FieldAsReal(f, i)
			default:
				gf.Properties[fd.Name] = engine.FieldAsString(f, i)
			}
		}
		fc.Append(gf)
		engine.DestroyFeature(f)
	}
	return fc
}

// inferFields derives a layer schema from GeoJSON properties. Numbers that
// are integral across every feature become 64-bit integers, anything else
// numeric becomes a real, booleans load as integers, and all remaining
// values stringify. Names are sorted so the schema is deterministic.
func inferFields(features []*geojson.Feature) []FieldDefn {
	types := make(map[string]FieldType)
	for _, f := range features {
		for name, v := range f.Properties {
			if v == nil {
				continue
			}
			t := propertyFieldType(v)
			if prev, seen := types[name]; seen {
				types[name] = promoteFieldType(prev, t)
			} else {
				types[name] = t
			}
		}
	}
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	fields := make([]FieldDefn, 0, len(names))
	for _, name := range names {
		fields = append(fields, FieldDefn{Name: name, Type: types[name]})
	}
	return fields
}

func propertyFieldType(v interface{}) FieldType {
	switch n := v.(type) {
	case bool, int, int32:
		return FTInteger
	case int64:
		return FTInteger64
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return FTInteger64
		}
		return FTReal
	case float32:
		return FTReal
	default:
		return FTString
	}
}

// promoteFieldType widens to the smallest type holding both.
func promoteFieldType(a, b FieldType) FieldType {
	if a == b {
		return a
	}
	rank := func(t FieldType) int {
		switch t {
		case FTInteger:
			return 0
		case FTInteger64:
			return 1
		case FTReal:
			return 2
		}
		return 3
	}
	ra, rb := rank(a), rank(b)
	if rb > ra {
		ra = rb
	}
	return [...]FieldType{FTInteger, FTInteger64, FTReal, FTString}[ra]
}

func columnFieldType(name string) FieldType {
	switch name {
	case "Bool", "Byte", "UByte", "Short", "UShort", "Int", "UInt":
		return FTInteger
	case "Long", "ULong":
		return FTInteger64
	case "Float", "Double":
		return FTReal
	}
	return FTString
}

func layerNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func asFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
