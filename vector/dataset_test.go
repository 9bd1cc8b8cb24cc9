package vector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const citiesGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [10.75, 59.91]},
			"properties": {"name": "Oslo", "pop": 700000}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [5.32, 60.39]},
			"properties": {"name": "Bergen", "pop": 280000, "coastal": true}
		}
	]
}`

func writeCitiesFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cities.geojson")
	require.NoError(t, os.WriteFile(path, []byte(citiesGeoJSON), 0o644))
	return path
}

func TestOpenGeoJSON(t *testing.T) {
	ds, err := Open(writeCitiesFile(t))
	require.NoError(t, err)
	defer ds.Close()

	require.Equal(t, 1, ds.LayerCount())
	layer, err := ds.Layer(0)
	require.NoError(t, err)
	assert.Equal(t, "cities", layer.Name())
	assert.Equal(t, 2, layer.FeatureCount())

	// Inferred schema: sorted names, integral numbers widen to Integer64.
	assert.Equal(t, []FieldDefn{
		{Name: "coastal", Type: FTInteger},
		{Name: "name", Type: FTString},
		{Name: "pop", Type: FTInteger64},
	}, layer.Defn().Fields())

	f := layer.Features().Next()
	require.NotNil(t, f)
	name, err := f.Field("name")
	require.NoError(t, err)
	assert.Equal(t, "Oslo", name.AsString())
	pop, err := f.Field("pop")
	require.NoError(t, err)
	assert.Equal(t, int64(700000), pop.AsInt64())
}

func TestOpenUnknownExtension(t *testing.T) {
	_, err := Open("data.shp")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Open("missing.geojson")
	assert.Error(t, err)
}

func TestLayerLookup(t *testing.T) {
	ds, err := Open(writeCitiesFile(t))
	require.NoError(t, err)
	defer ds.Close()

	byName, err := ds.LayerByName("cities")
	require.NoError(t, err)
	assert.Equal(t, "cities", byName.Name())

	_, err = ds.LayerByName("rivers")
	assert.ErrorIs(t, err, ErrNoSuchLayer)
	_, err = ds.Layer(5)
	assert.ErrorIs(t, err, ErrNoSuchLayer)
}

func TestClosedDataset(t *testing.T) {
	ds, err := Open(writeCitiesFile(t))
	require.NoError(t, err)
	ds.Close()
	ds.Close() // second close is a no-op

	_, err = ds.Layer(0)
	assert.ErrorIs(t, err, ErrDatasetClosed)
	_, err = ds.LayerByName("cities")
	assert.ErrorIs(t, err, ErrDatasetClosed)
	assert.ErrorIs(t, ds.Export("out.geojson"), ErrDatasetClosed)
}

func TestGeoJSONRoundTrip(t *testing.T) {
	ds, err := Open(writeCitiesFile(t))
	require.NoError(t, err)
	defer ds.Close()

	out := filepath.Join(t.TempDir(), "out.geojson")
	require.NoError(t, ds.Export(out))

	back, err := Open(out)
	require.NoError(t, err)
	defer back.Close()

	layer, err := back.Layer(0)
	require.NoError(t, err)
	assert.Equal(t, 2, layer.FeatureCount())

	it := layer.Features()
	f := it.Next()
	require.NotNil(t, f)
	name, err := f.Field("name")
	require.NoError(t, err)
	assert.Equal(t, "Oslo", name.AsString())
	require.NotNil(t, f.Geometry())
	assert.Equal(t, Vertex{X: 10.75, Y: 59.91}, f.Geometry().Point(0))
}

func TestFlatGeobufRoundTrip(t *testing.T) {
	ds, err := Open(writeCitiesFile(t))
	require.NoError(t, err)
	defer ds.Close()

	out := filepath.Join(t.TempDir(), "cities.fgb")
	require.NoError(t, ds.Export(out))

	back, err := Open(out)
	require.NoError(t, err)
	defer back.Close()

	layer, err := back.Layer(0)
	require.NoError(t, err)
	assert.Equal(t, 2, layer.FeatureCount())

	names := map[string]int64{}
	it := layer.Features()
	for f := it.Next(); f != nil; f = it.Next() {
		name, err := f.Field("name")
		require.NoError(t, err)
		pop, err := f.Field("pop")
		require.NoError(t, err)
		names[name.AsString()] = pop.AsInt64()
	}
	assert.Equal(t, map[string]int64{"Oslo": 700000, "Bergen": 280000}, names)
}

func TestExportEmptyDataset(t *testing.T) {
	ds := CreateDataset()
	defer ds.Close()
	assert.ErrorIs(t, ds.Export("out.geojson"), ErrEmptyDataset)
}
