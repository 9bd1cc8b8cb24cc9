package engine

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// layerRec holds all iteration state for a layer. The read cursor lives
// here, not in any iterator object above, so every consumer of the layer
// shares one position.
type layerRec struct {
	name string
	defn DefnHandle

	feats  []*featureRec
	cursor int

	filter  *orb.Bound
	matched []int // feature indexes passing the filter, in insertion order

	tree *rtreego.Rtree
}

func layer(h LayerHandle) *layerRec {
	l, ok := layers[h]
	if !ok {
		panic("engine: invalid layer handle")
	}
	return l
}

// indexedFeature wraps a stored feature for R-tree insertion.
type indexedFeature struct {
	idx   int
	bound orb.Bound
}

// Bounds implements rtreego.Spatial. Zero-extent bounds are padded so point
// features still index.
func (f *indexedFeature) Bounds() rtreego.Rect {
	const epsilon = 1e-9
	w := f.bound.Max[0] - f.bound.Min[0]
	h := f.bound.Max[1] - f.bound.Min[1]
	if w < epsilon {
		w = epsilon
	}
	if h < epsilon {
		h = epsilon
	}
	rect, _ := rtreego.NewRect(rtreego.Point{f.bound.Min[0], f.bound.Min[1]}, []float64{w, h})
	return rect
}

// LayerName reports the layer name.
func LayerName(h LayerHandle) string {
	mu.Lock()
	defer mu.Unlock()
	return layer(h).name
}

// LayerDefn reports the layer schema. The handle is owned by the layer.
func LayerDefn(h LayerHandle) DefnHandle {
	mu.Lock()
	defer mu.Unlock()
	return layer(h).defn
}

// ResetReading rewinds the shared read cursor to the first feature.
func ResetReading(h LayerHandle) {
	mu.Lock()
	defer mu.Unlock()
	layer(h).cursor = 0
}

// NextFeature advances the shared cursor and returns a copy of the next
// feature passing the current spatial filter. The caller owns the returned
// handle and must destroy it. Zero signals the end of iteration.
func NextFeature(h LayerHandle) FeatureHandle {
	mu.Lock()
	defer mu.Unlock()
	l := layer(h)

	var rec *featureRec
	if l.filter != nil {
		if l.cursor >= len(l.matched) {
			return 0
		}
		rec = l.feats[l.matched[l.cursor]]
	} else {
		if l.cursor >= len(l.feats) {
			return 0
		}
		rec = l.feats[l.cursor]
	}
	l.cursor++

	fh := FeatureHandle(newID())
	features[fh] = rec.clone()
	return fh
}

// LayerCreateFeature copies a feature into the layer's storage. The source
// feature still belongs to the caller.
func LayerCreateFeature(h LayerHandle, f FeatureHandle) Status {
	mu.Lock()
	defer mu.Unlock()
	l := layer(h)
	rec, ok := features[f]
	if !ok {
		return StatusFailure
	}
	if rec.defn != l.defn {
		return StatusFailure
	}
	stored := rec.clone()
	l.feats = append(l.feats, stored)
	if l.tree != nil && stored.geom != nil {
		l.tree.Insert(&indexedFeature{idx: len(l.feats) - 1, bound: stored.geom.bound()})
	}
	if l.filter != nil {
		l.recomputeMatches()
	}
	return StatusNone
}

// SetSpatialFilter installs (or, with a zero handle, removes) an envelope
// filter over subsequent reads. Installing or clearing a filter rewinds the
// shared cursor, so any reader mid-traversal restarts.
func SetSpatialFilter(h LayerHandle, g GeomHandle) {
	mu.Lock()
	defer mu.Unlock()
	l := layer(h)
	l.cursor = 0
	if g == 0 {
		l.filter = nil
		l.matched = nil
		return
	}
	b := geom(g).bound()
	l.filter = &b
	l.recomputeMatches()
}

func (l *layerRec) recomputeMatches() {
	if l.tree == nil {
		l.buildTree()
	}
	probe := &indexedFeature{bound: *l.filter}
	hits := l.tree.SearchIntersect(probe.Bounds())
	l.matched = l.matched[:0]
	for _, s := range hits {
		f := s.(*indexedFeature)
		// The R-tree pads degenerate rects, so confirm with the real bound.
		if l.filter.Intersects(f.bound) {
			l.matched = append(l.matched, f.idx)
		}
	}
	sort.Ints(l.matched)
}

func (l *layerRec) buildTree() {
	l.tree = rtreego.NewTree(2, 25, 50)
	for i, f := range l.feats {
		if f.geom != nil {
			l.tree.Insert(&indexedFeature{idx: i, bound: f.geom.bound()})
		}
	}
}

// FeatureCount reports the number of features visible through the current
// spatial filter.
func FeatureCount(h LayerHandle) int {
	mu.Lock()
	defer mu.Unlock()
	l := layer(h)
	if l.filter != nil {
		return len(l.matched)
	}
	return len(l.feats)
}

type datasetRec struct {
	layers []LayerHandle
}

func dataset(h DatasetHandle) *datasetRec {
	d, ok := datasets[h]
	if !ok {
		panic("engine: invalid dataset handle")
	}
	return d
}

// CreateDataset allocates an empty dataset.
func CreateDataset() DatasetHandle {
	mu.Lock()
	defer mu.Unlock()
	h := DatasetHandle(newID())
	datasets[h] = &datasetRec{}
	return h
}

// AddLayer creates a layer owned by the dataset. The defn handle passes into
// the layer's ownership.
func AddLayer(ds DatasetHandle, name string, defn DefnHandle) LayerHandle {
	mu.Lock()
	defer mu.Unlock()
	d := dataset(ds)
	h := LayerHandle(newID())
	layers[h] = &layerRec{name: name, defn: defn}
	d.layers = append(d.layers, h)
	return h
}

// DatasetLayerCount reports the number of layers.
func DatasetLayerCount(ds DatasetHandle) int {
	mu.Lock()
	defer mu.Unlock()
	return len(dataset(ds).layers)
}

// DatasetLayer returns the i-th layer handle, zero when out of range. Layer
// handles are owned by the dataset and must not be destroyed by callers.
func DatasetLayer(ds DatasetHandle, i int) LayerHandle {
	mu.Lock()
	defer mu.Unlock()
	d := dataset(ds)
	if i < 0 || i >= len(d.layers) {
		return 0
	}
	return d.layers[i]
}

// DatasetLayerByName returns the layer with the given name, zero when absent.
func DatasetLayerByName(ds DatasetHandle, name string) LayerHandle {
	mu.Lock()
	defer mu.Unlock()
	for _, lh := range dataset(ds).layers {
		if layers[lh].name == name {
			return lh
		}
	}
	return 0
}

// DestroyDataset releases the dataset, its layers, their schemas and stored
// features. Layer handles into the dataset dangle afterwards.
func DestroyDataset(ds DatasetHandle) {
	mu.Lock()
	defer mu.Unlock()
	d := dataset(ds)
	for _, lh := range d.layers {
		l := layers[lh]
		delete(defns, l.defn)
		delete(layers, lh)
	}
	delete(datasets, ds)
}
