package vector

import "github.com/geodataio/layerkit/internal/engine"

// FieldType identifies the declared type of a schema field.
type FieldType = engine.FieldType

// Schema field types.
const (
	FTInteger   = engine.FTInteger
	FTReal      = engine.FTReal
	FTString    = engine.FTString
	FTInteger64 = engine.FTInteger64
)

// FieldDefn is one named, typed attribute field of a layer schema.
type FieldDefn struct {
	Name string
	Type FieldType
}

// Defn is a layer's schema: the ordered set of field definitions its
// features conform to. A Defn is owned by its Layer and borrowed by Features
// for name and type lookups.
type Defn struct {
	handle engine.DefnHandle
}

// FieldCount reports the number of fields.
func (d *Defn) FieldCount() int {
	return engine.DefnFieldCount(d.handle)
}

// Field returns the i-th field definition.
func (d *Defn) Field(i int) FieldDefn {
	f := engine.DefnField(d.handle, i)
	return FieldDefn{Name: f.Name, Type: f.Type}
}

// Fields returns all field definitions in schema order.
func (d *Defn) Fields() []FieldDefn {
	n := d.FieldCount()
	out := make([]FieldDefn, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, d.Field(i))
	}
	return out
}

// fieldIndex resolves a field name, -1 when absent. Lookups are exact:
// case-sensitive, no coercion.
func (d *Defn) fieldIndex(name string) int {
	return engine.DefnFieldIndex(d.handle, name)
}
