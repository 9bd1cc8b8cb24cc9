package engine

// FieldType is a schema field type code.
type FieldType int

const (
	FTInteger   FieldType = 0
	FTReal      FieldType = 1
	FTString    FieldType = 2
	FTInteger64 FieldType = 3
)

func (t FieldType) String() string {
	switch t {
	case FTInteger:
		return "Integer"
	case FTReal:
		return "Real"
	case FTString:
		return "String"
	case FTInteger64:
		return "Integer64"
	}
	return "Unknown"
}

// FieldDef is one named, typed attribute field of a schema.
type FieldDef struct {
	Name string
	Type FieldType
}

type defnRec struct {
	fields []FieldDef
}

func defn(h DefnHandle) *defnRec {
	d, ok := defns[h]
	if !ok {
		panic("engine: invalid defn handle")
	}
	return d
}

// CreateDefn builds a schema definition from an ordered field list.
func CreateDefn(fields []FieldDef) DefnHandle {
	mu.Lock()
	defer mu.Unlock()
	h := DefnHandle(newID())
	defns[h] = &defnRec{fields: append([]FieldDef(nil), fields...)}
	return h
}

// DestroyDefn releases a schema definition.
func DestroyDefn(h DefnHandle) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := defns[h]; !ok {
		panic("engine: destroy of invalid defn handle")
	}
	delete(defns, h)
}

// DefnFieldCount reports the number of fields in a schema.
func DefnFieldCount(h DefnHandle) int {
	mu.Lock()
	defer mu.Unlock()
	return len(defn(h).fields)
}

// DefnField returns the i-th field definition.
func DefnField(h DefnHandle, i int) FieldDef {
	mu.Lock()
	defer mu.Unlock()
	d := defn(h)
	if i < 0 || i >= len(d.fields) {
		panic("engine: field index out of range")
	}
	return d.fields[i]
}

// DefnFieldIndex looks a field up by exact name, returning -1 when absent.
func DefnFieldIndex(h DefnHandle, name string) int {
	mu.Lock()
	defer mu.Unlock()
	for i, f := range defn(h).fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

type fieldSlot struct {
	set bool
	i   int64
	f   float64
	s   string
}

type featureRec struct {
	defn   DefnHandle
	geom   *geomNode // nil until a geometry is attached
	geomH  GeomHandle
	fields []fieldSlot
}

func feature(h FeatureHandle) *featureRec {
	f, ok := features[h]
	if !ok {
		panic("engine: invalid feature handle")
	}
	return f
}

// CreateFeature allocates a feature conforming to the given schema.
func CreateFeature(d DefnHandle) FeatureHandle {
	mu.Lock()
	defer mu.Unlock()
	rec := &featureRec{defn: d, fields: make([]fieldSlot, len(defn(d).fields))}
	h := FeatureHandle(newID())
	features[h] = rec
	return h
}

// DestroyFeature releases a feature together with the geometry it owns. Any
// handle aliasing that geometry or one of its children dangles after this
// call.
func DestroyFeature(h FeatureHandle) {
	mu.Lock()
	defer mu.Unlock()
	f := feature(h)
	if f.geom != nil {
		releaseNode(f.geom)
	}
	delete(features, h)
}

// FeatureDefn reports the schema a feature conforms to.
func FeatureDefn(h FeatureHandle) DefnHandle {
	mu.Lock()
	defer mu.Unlock()
	return feature(h).defn
}

// SetGeometryDirectly moves a geometry into a feature. The feature owns the
// node afterwards; the donor handle remains an alias and must not be
// destroyed by the caller.
func SetGeometryDirectly(f FeatureHandle, g GeomHandle) Status {
	mu.Lock()
	defer mu.Unlock()
	rec := feature(f)
	n, ok := geoms[g]
	if !ok {
		return StatusFailure
	}
	if rec.geom != nil && rec.geom != n {
		releaseNode(rec.geom)
	}
	rec.geom = n
	rec.geomH = g
	return StatusNone
}

// FeatureGeometryRef returns an aliasing handle to the feature's geometry,
// owned by the feature. The same handle is returned on repeated calls; it
// becomes invalid when the feature is destroyed. Zero when the feature has
// no geometry.
func FeatureGeometryRef(h FeatureHandle) GeomHandle {
	mu.Lock()
	defer mu.Unlock()
	f := feature(h)
	if f.geom == nil {
		return 0
	}
	if f.geomH == 0 {
		f.geomH = registerGeom(f.geom)
	}
	return f.geomH
}

func (f *featureRec) slot(i int) *fieldSlot {
	if i < 0 || i >= len(f.fields) {
		panic("engine: field index out of range")
	}
	return &f.fields[i]
}

// SetFieldInteger64 stores an integer value in field i.
func SetFieldInteger64(h FeatureHandle, i int, v int64) {
	mu.Lock()
	defer mu.Unlock()
	s := feature(h).slot(i)
	s.set, s.i = true, v
}

// SetFieldReal stores a real value in field i.
func SetFieldReal(h FeatureHandle, i int, v float64) {
	mu.Lock()
	defer mu.Unlock()
	s := feature(h).slot(i)
	s.set, s.f = true, v
}

// SetFieldString stores a string value in field i.
func SetFieldString(h FeatureHandle, i int, v string) {
	mu.Lock()
	defer mu.Unlock()
	s := feature(h).slot(i)
	s.set, s.s = true, v
}

// FieldAsInteger64 reads field i as an integer.
func FieldAsInteger64(h FeatureHandle, i int) int64 {
	mu.Lock()
	defer mu.Unlock()
	return feature(h).slot(i).i
}

// FieldAsReal reads field i as a real.
func FieldAsReal(h FeatureHandle, i int) float64 {
	mu.Lock()
	defer mu.Unlock()
	return feature(h).slot(i).f
}

// FieldAsString reads field i as a string.
func FieldAsString(h FeatureHandle, i int) string {
	mu.Lock()
	defer mu.Unlock()
	return feature(h).slot(i).s
}

// FieldIsSet reports whether field i has been assigned.
func FieldIsSet(h FeatureHandle, i int) bool {
	mu.Lock()
	defer mu.Unlock()
	return feature(h).slot(i).set
}

func (f *featureRec) clone() *featureRec {
	c := &featureRec{defn: f.defn, fields: append([]fieldSlot(nil), f.fields...)}
	if f.geom != nil {
		c.geom = f.geom.clone()
	}
	return c
}
