package fgb

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestWrite_NoFeatures(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil, ""); !errors.Is(err, ErrNoFeatures) {
		t.Errorf("expected ErrNoFeatures, got %v", err)
	}
	if err := Write(&buf, geojson.NewFeatureCollection(), ""); !errors.Is(err, ErrNoFeatures) {
		t.Errorf("expected ErrNoFeatures, got %v", err)
	}

	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(nil))
	if err := Write(&buf, fc, ""); !errors.Is(err, ErrMissingGeometry) {
		t.Errorf("expected ErrMissingGeometry, got %v", err)
	}
}

func TestRoundTrip_GeometryTypes(t *testing.T) {
	tests := []struct {
		name string
		geom orb.Geometry
	}{
		{"point", orb.Point{10, 20}},
		{"multipoint", orb.MultiPoint{{1, 1}, {2, 2}, {3, 3}}},
		{"linestring", orb.LineString{{0, 0}, {5, 5}, {10, 0}}},
		{"multilinestring", orb.MultiLineString{
			{{0, 0}, {1, 1}},
			{{2, 2}, {3, 3}, {4, 4}},
		}},
		{"polygon", orb.Polygon{
			{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
			{{2, 2}, {2, 4}, {4, 4}, {4, 2}, {2, 2}},
		}},
		{"multipolygon", orb.MultiPolygon{
			{{{0, 0}, {5, 0}, {5, 5}, {0, 5}, {0, 0}}},
			{{{10, 10}, {15, 10}, {15, 15}, {10, 15}, {10, 10}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := geojson.NewFeatureCollection()
			fc.Append(geojson.NewFeature(tt.geom))

			var buf bytes.Buffer
			if err := Write(&buf, fc, "shapes"); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			reader, err := NewReader(buf.Bytes())
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			back, err := reader.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if len(back.Features) != 1 {
				t.Fatalf("expected 1 feature, got %d", len(back.Features))
			}
			if !orb.Equal(back.Features[0].Geometry, tt.geom) {
				t.Errorf("geometry mismatch:\n got %v\nwant %v", back.Features[0].Geometry, tt.geom)
			}
		})
	}
}

func TestRoundTrip_Properties(t *testing.T) {
	fc := geojson.NewFeatureCollection()

	f1 := geojson.NewFeature(orb.Point{1, 1})
	f1.Properties = geojson.Properties{
		"name":    "alpha",
		"count":   int64(42),
		"height":  3.5,
		"visible": true,
	}
	fc.Append(f1)

	f2 := geojson.NewFeature(orb.Point{2, 2})
	f2.Properties = geojson.Properties{
		"name": "beta",
		// count, height, visible left unset
	}
	fc.Append(f2)

	var buf bytes.Buffer
	if err := Write(&buf, fc, "props"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	reader, err := NewReader(buf.Bytes())
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	back, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(back.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(back.Features))
	}

	byName := map[string]geojson.Properties{}
	for _, f := range back.Features {
		name, ok := f.Properties["name"].(string)
		if !ok {
			t.Fatalf("missing name property in %v", f.Properties)
		}
		byName[name] = f.Properties
	}

	alpha := byName["alpha"]
	if alpha == nil {
		t.Fatal("feature 'alpha' not found")
	}
	if got, ok := alpha["count"].(int64); !ok || got != 42 {
		t.Errorf("count: got %v (%T)", alpha["count"], alpha["count"])
	}
	if got, ok := alpha["height"].(float64); !ok || got != 3.5 {
		t.Errorf("height: got %v (%T)", alpha["height"], alpha["height"])
	}
	if got, ok := alpha["visible"].(bool); !ok || !got {
		t.Errorf("visible: got %v (%T)", alpha["visible"], alpha["visible"])
	}

	beta := byName["beta"]
	if beta == nil {
		t.Fatal("feature 'beta' not found")
	}
	if _, present := beta["count"]; present {
		t.Errorf("unset property 'count' decoded as %v", beta["count"])
	}
}

func TestInfo_Columns(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Point{0, 0})
	f.Properties = geojson.Properties{
		"zeta":  1.5,
		"alpha": "x",
		"mid":   int64(7),
	}
	fc.Append(f)

	var buf bytes.Buffer
	if err := Write(&buf, fc, "columns"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	reader, err := NewReader(buf.Bytes())
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	info := reader.Info()
	if info == nil {
		t.Fatal("expected header info")
	}
	if info.Name != "columns" {
		t.Errorf("name: got %q, want %q", info.Name, "columns")
	}
	if !info.HasIndex {
		t.Error("expected a spatial index")
	}
	if info.GeometryType != "Point" {
		t.Errorf("geometry type: got %q", info.GeometryType)
	}

	// Column schema is sorted by name regardless of map iteration order.
	wantNames := []string{"alpha", "mid", "zeta"}
	wantTypes := []string{"String", "Long", "Double"}
	if len(info.Columns) != len(wantNames) {
		t.Fatalf("expected %d columns, got %d", len(wantNames), len(info.Columns))
	}
	for i, col := range info.Columns {
		if col.Name != wantNames[i] {
			t.Errorf("column %d: got name %q, want %q", i, col.Name, wantNames[i])
		}
		if col.Type != wantTypes[i] {
			t.Errorf("column %q: got type %q, want %q", col.Name, col.Type, wantTypes[i])
		}
	}
}

func TestSearch_Bounds(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			f := geojson.NewFeature(orb.Point{float64(x), float64(y)})
			f.Properties = geojson.Properties{"x": int64(x), "y": int64(y)}
			fc.Append(f)
		}
	}

	tmpFile := filepath.Join(t.TempDir(), "grid.fgb")
	file, err := os.Create(tmpFile)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	err = Write(file, fc, "grid")
	_ = file.Close()
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	reader, err := OpenFile(tmpFile)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}

	results, err := reader.Search(orb.Bound{Min: orb.Point{2, 2}, Max: orb.Point{4, 4}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	// Points at x,y in 2..4 inclusive.
	if len(results.Features) != 9 {
		t.Errorf("expected 9 features in bounds, got %d", len(results.Features))
	}
	for _, f := range results.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			t.Fatalf("expected point geometry, got %T", f.Geometry)
		}
		if p[0] < 2 || p[0] > 4 || p[1] < 2 || p[1] > 4 {
			t.Errorf("point %v outside query bounds", p)
		}
	}

	all, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(all.Features) != 100 {
		t.Errorf("expected 100 features, got %d", len(all.Features))
	}
}

func TestPromote(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	f1 := geojson.NewFeature(orb.Point{0, 0})
	f1.Properties = geojson.Properties{"v": int64(1)}
	fc.Append(f1)
	f2 := geojson.NewFeature(orb.Point{1, 1})
	f2.Properties = geojson.Properties{"v": 2.5}
	fc.Append(f2)

	cols, _ := inferColumns(fc.Features)
	if len(cols) != 1 {
		t.Fatalf("expected 1 column, got %d", len(cols))
	}
	if got := cols[0].typ; got.String() != "Double" {
		t.Errorf("mixed int/float column: got %v, want Double", got)
	}
}
