package vector

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/geodataio/layerkit/internal/engine"
)

// Dataset is a collection of named layers. Datasets are either created in
// memory and populated through CreateLayer and Layer.CreateFeature, or
// opened from a FlatGeobuf or GeoJSON file. The dataset owns its layers:
// Layer values stay valid until the dataset is closed and are never released
// individually.
type Dataset struct {
	handle engine.DatasetHandle
	path   string
	layers []*Layer
}

// CreateDataset allocates an empty in-memory dataset.
func CreateDataset() *Dataset {
	return &Dataset{handle: engine.CreateDataset()}
}

// Open reads a dataset from a file. The driver is selected by extension:
// .fgb for FlatGeobuf, .geojson or .json for GeoJSON.
func Open(path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fgb":
		return openFlatGeobuf(path)
	case ".geojson", ".json":
		return openGeoJSON(path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// CreateLayer adds a layer with the given schema to the dataset.
func (ds *Dataset) CreateLayer(name string, fields ...FieldDefn) *Layer {
	if ds.handle == 0 {
		panic("vector: create layer on closed dataset")
	}
	defs := make([]engine.FieldDef, 0, len(fields))
	for _, f := range fields {
		defs = append(defs, engine.FieldDef{Name: f.Name, Type: f.Type})
	}
	lh := engine.AddLayer(ds.handle, name, engine.CreateDefn(defs))
	l := newLayer(lh)
	ds.layers = append(ds.layers, l)
	return l
}

// LayerCount reports the number of layers.
func (ds *Dataset) LayerCount() int {
	return len(ds.layers)
}

// Layer returns the i-th layer.
func (ds *Dataset) Layer(i int) (*Layer, error) {
	if ds.handle == 0 {
		return nil, ErrDatasetClosed
	}
	if i < 0 || i >= len(ds.layers) {
		return nil, fmt.Errorf("%w: index %d", ErrNoSuchLayer, i)
	}
	return ds.layers[i], nil
}

// LayerByName returns the layer with the given name.
func (ds *Dataset) LayerByName(name string) (*Layer, error) {
	if ds.handle == 0 {
		return nil, ErrDatasetClosed
	}
	for _, l := range ds.layers {
		if l.Name() == name {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoSuchLayer, name)
}

// Close releases the dataset, its layers and everything they store. Layers
// and features obtained from the dataset must not be used afterwards.
// Closing twice is a no-op.
func (ds *Dataset) Close() {
	if ds.handle == 0 {
		return
	}
	engine.DestroyDataset(ds.handle)
	ds.handle = 0
	ds.layers = nil
	log.Debug().Str("path", ds.path).Msg("dataset closed")
}
