package vector

import (
	"fmt"

	"github.com/geodataio/layerkit/internal/engine"
)

// Layer wraps an engine layer handle, which is owned by the parent Dataset:
// a Layer lives as long as its Dataset and is never independently released.
//
// The read cursor is part of the engine layer, not of any iterator, so all
// iterators over one layer share a single position. Two live iterators over
// the same layer interleave against that shared cursor and are not
// independently consistent; one iterator at a time is the supported pattern.
type Layer struct {
	handle engine.LayerHandle
	defn   Defn
}

func newLayer(h engine.LayerHandle) *Layer {
	return &Layer{handle: h, defn: Defn{handle: engine.LayerDefn(h)}}
}

// Name reports the layer name.
func (l *Layer) Name() string {
	return engine.LayerName(l.handle)
}

// Defn exposes the cached schema for field lookups.
func (l *Layer) Defn() *Defn {
	return &l.defn
}

// Features returns a fresh single-pass iterator over the layer. Requesting a
// new iterator resets the shared cursor, a side effect visible to any other
// iterator currently traversing this layer.
func (l *Layer) Features() *FeatureIterator {
	engine.ResetReading(l.handle)
	return &FeatureIterator{layer: l}
}

// FeatureCount reports the number of features visible through the current
// spatial filter.
func (l *Layer) FeatureCount() int {
	return engine.FeatureCount(l.handle)
}

// SetSpatialFilter installs an envelope predicate narrowing subsequent
// iteration to features intersecting the geometry's bounds. Filter state
// lives on the layer: it affects iterators created later and rewinds the
// cursor of any iterator mid-traversal.
func (l *Layer) SetSpatialFilter(g *Geometry) {
	engine.SetSpatialFilter(l.handle, g.handleRef())
}

// ClearSpatialFilter removes the spatial predicate and rewinds the shared
// cursor.
func (l *Layer) ClearSpatialFilter() {
	engine.SetSpatialFilter(l.handle, 0)
}

// CreateFeature builds a new feature from the layer's schema, attaches the
// geometry by ownership transfer and submits the feature for persistence.
// The geometry's handle is consumed: the value must not be used for owning
// operations afterward. Any non-success engine status on the attach or the
// create step panics.
func (l *Layer) CreateFeature(g *Geometry) {
	fh := engine.CreateFeature(l.defn.handle)
	if st := engine.SetGeometryDirectly(fh, g.takeHandle()); st != engine.StatusNone {
		panic(fmt.Sprintf("vector: attach geometry: %s", st))
	}
	if st := engine.LayerCreateFeature(l.handle, fh); st != engine.StatusNone {
		panic(fmt.Sprintf("vector: create feature: %s", st))
	}
	engine.DestroyFeature(fh)
}

// FeatureIterator is a transient, forward-only cursor over one Layer. It
// holds no position of its own; advancing moves the cursor shared through
// the layer. The sequence is finite and not restartable: a fresh iterator
// must be requested from the Layer, which rewinds the shared cursor.
type FeatureIterator struct {
	layer *Layer
	prev  *Feature
}

// Next advances the shared cursor and returns the next feature, or nil
// exactly when the cursor is exhausted. The previously returned feature is
// released on each advance: features and their geometries are valid only
// until the following Next call.
func (it *FeatureIterator) Next() *Feature {
	if it.prev != nil {
		it.prev.Close()
		it.prev = nil
	}
	h := engine.NextFeature(it.layer.handle)
	if h == 0 {
		return nil
	}
	it.prev = newFeature(it.layer.Defn(), h)
	return it.prev
}
