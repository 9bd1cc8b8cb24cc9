package vector

import (
	"fmt"

	"github.com/geodataio/layerkit/internal/engine"
)

// Feature owns one engine feature handle and borrows its layer's schema for
// field lookups. Features are produced by a FeatureIterator; the iterator
// releases each feature when it advances past it, so a Feature and the
// Geometry it exposes must not be retained across iterator advances.
type Feature struct {
	handle engine.FeatureHandle
	defn   *Defn
	geom   Geometry
}

func newFeature(defn *Defn, h engine.FeatureHandle) *Feature {
	return &Feature{handle: h, defn: defn, geom: lazyFeatureGeometry()}
}

// Field looks an attribute up by name against the layer schema. An absent
// name reports ErrFieldNotFound. The value's kind follows the schema's
// declared type for the field.
func (f *Feature) Field(name string) (FieldValue, error) {
	idx := f.defn.fieldIndex(name)
	if idx < 0 {
		return FieldValue{}, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	fd := f.defn.Field(idx)
	v := FieldValue{kind: fd.Type}
	switch fd.Type {
	case FTInteger, FTInteger64:
		v.i = engine.FieldAsInteger64(f.handle, idx)
	case FTReal:
		v.f = engine.FieldAsReal(f.handle, idx)
	case FTString:
		v.s = engine.FieldAsString(f.handle, idx)
	}
	return v, nil
}

// Geometry returns the feature's geometry. On first call the engine handle
// is fetched from the feature and bound into the lazily-bound wrapper;
// subsequent calls return the same cached value. The feature owns the
// underlying memory: the returned Geometry must not outlive the Feature, and
// closing it is a no-op. Nil when the feature carries no geometry.
func (f *Feature) Geometry() *Geometry {
	if !f.geom.bound() {
		h := engine.FeatureGeometryRef(f.handle)
		if h == 0 {
			return nil
		}
		f.geom.bind(h)
	}
	return &f.geom
}

// Defn returns the schema this feature conforms to.
func (f *Feature) Defn() *Defn {
	return f.defn
}

// Close releases the engine feature handle, and with it the feature-owned
// geometry memory. Closing twice is a no-op. The iterator that produced the
// feature calls this when it advances.
func (f *Feature) Close() {
	if f.handle == 0 {
		return
	}
	engine.DestroyFeature(f.handle)
	f.handle = 0
}

// FieldValue is a polymorphic attribute value, tagged by the schema's
// declared field type. Reading a value through an accessor of the wrong kind
// is a programming error and panics; an absent field is reported earlier, by
// Feature.Field, as an ordinary error.
type FieldValue struct {
	kind FieldType
	i    int64
	f    float64
	s    string
}

// Kind reports the schema type the value was read as.
func (v FieldValue) Kind() FieldType {
	return v.kind
}

// AsInt64 returns an integer field's value.
func (v FieldValue) AsInt64() int64 {
	if v.kind != FTInteger && v.kind != FTInteger64 {
		panic(fmt.Sprintf("vector: field value is %s, not an integer", v.kind))
	}
	return v.i
}

// AsReal returns a real field's value.
func (v FieldValue) AsReal() float64 {
	if v.kind != FTReal {
		panic(fmt.Sprintf("vector: field value is %s, not Real", v.kind))
	}
	return v.f
}

// AsString returns a string field's value.
func (v FieldValue) AsString() string {
	if v.kind != FTString {
		panic(fmt.Sprintf("vector: field value is %s, not String", v.kind))
	}
	return v.s
}
