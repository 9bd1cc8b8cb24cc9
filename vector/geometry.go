package vector

import (
	"fmt"

	"github.com/geodataio/layerkit/internal/engine"
)

// GeomType selects a geometry kind by its well-known-binary type code.
type GeomType = engine.GeomType

// Well-known-binary geometry type codes.
const (
	WKBUnknown            = engine.WKBUnknown
	WKBPoint              = engine.WKBPoint
	WKBLineString         = engine.WKBLineString
	WKBPolygon            = engine.WKBPolygon
	WKBMultiPoint         = engine.WKBMultiPoint
	WKBMultiLineString    = engine.WKBMultiLineString
	WKBMultiPolygon       = engine.WKBMultiPolygon
	WKBGeometryCollection = engine.WKBGeometryCollection
	WKBLinearRing         = engine.WKBLinearRing
)

// Vertex is one coordinate triple. Z is zero for 2D geometries.
type Vertex struct {
	X, Y, Z float64
}

type geomState uint8

const (
	// stateUnbound marks a feature geometry whose engine handle has not yet
	// been fetched. The only allowed transition is to stateAliased, once.
	stateUnbound geomState = iota
	// stateOwned geometries release their engine object on Close.
	stateOwned
	// stateAliased geometries reference memory owned by a parent (a feature,
	// a containing geometry); Close never releases.
	stateAliased
	// stateClosed marks an owned geometry after Close released it. Terminal:
	// a closed wrapper is never a live alias.
	stateClosed
)

// Geometry wraps an engine geometry handle together with its ownership state.
//
// A Geometry is either owned (constructed standalone via NewGeometry,
// GeometryFromWKT, BBox or ConvexHull), aliased (a sub-geometry or a
// feature's geometry, whose memory belongs to the parent), or unbound (a
// feature geometry before first access). The state decides what Close does;
// the partition is what keeps release-exactly-once true on every path.
type Geometry struct {
	state  geomState
	handle engine.GeomHandle
}

// lazyFeatureGeometry returns the unbound variant used inside Feature. The
// handle is fetched from the engine on first Feature.Geometry call and bound
// exactly once; the feature owns the underlying memory, so the wrapper never
// releases it.
func lazyFeatureGeometry() Geometry {
	return Geometry{state: stateUnbound}
}

func ownedGeometry(h engine.GeomHandle) *Geometry {
	return &Geometry{state: stateOwned, handle: h}
}

func aliasedGeometry(h engine.GeomHandle) *Geometry {
	return &Geometry{state: stateAliased, handle: h}
}

// NewGeometry allocates a new empty geometry of the given WKB type. Unknown
// type codes are a programming error and panic.
func NewGeometry(t GeomType) *Geometry {
	return ownedGeometry(engine.CreateGeometry(t))
}

// GeometryFromWKT parses a well-known-text string into an owned geometry.
// Malformed input is treated as a contract violation and panics; callers
// feeding untrusted text must validate it first.
func GeometryFromWKT(text string) *Geometry {
	h, st := engine.CreateFromWKT(text)
	if st != engine.StatusNone {
		panic(fmt.Sprintf("vector: parse WKT %q: %s", text, st))
	}
	return ownedGeometry(h)
}

// BBox builds a closed rectangular polygon from west, south, east and north
// bounds. The ring traces (W,N), (E,N), (E,S), (W,S) and closes back on
// the first corner.
func BBox(w, s, e, n float64) *Geometry {
	return GeometryFromWKT(fmt.Sprintf(
		"POLYGON ((%v %v, %v %v, %v %v, %v %v, %v %v))",
		w, n,
		e, n,
		e, s,
		w, s,
		w, n,
	))
}

// bound reports whether the geometry has an engine handle.
func (g *Geometry) bound() bool {
	return g.state != stateUnbound
}

// bind attaches the engine handle of a lazily-bound feature geometry.
// Binding twice, or binding anything that already has a handle, is a
// programming error.
func (g *Geometry) bind(h engine.GeomHandle) {
	if g.state != stateUnbound || g.handle != 0 {
		panic("vector: geometry handle already bound")
	}
	if h == 0 {
		panic("vector: bind of null geometry handle")
	}
	g.handle = h
	g.state = stateAliased
}

// handleRef returns the engine handle for read access.
func (g *Geometry) handleRef() engine.GeomHandle {
	if !g.bound() || g.handle == 0 {
		panic("vector: use of unbound or closed geometry")
	}
	return g.handle
}

// takeHandle transfers ownership of the engine object out of g. The donor
// flips to non-owned in the same step, so its Close becomes a no-op. Taking
// from a geometry that is not currently owned panics.
func (g *Geometry) takeHandle() engine.GeomHandle {
	if g.state != stateOwned {
		panic("vector: ownership transfer of non-owned geometry")
	}
	g.state = stateAliased
	return g.handle
}

// Type reports the geometry's WKB type code.
func (g *Geometry) Type() GeomType {
	return engine.GeometryType(g.handleRef())
}

// GeometryCount reports the number of direct sub-geometries: rings for a
// polygon, members for multi types and collections.
func (g *Geometry) GeometryCount() int {
	return engine.GeometryCount(g.handleRef())
}

// JSON serializes the geometry as GeoJSON. The engine-allocated buffer is
// copied and released before returning.
func (g *Geometry) JSON() string {
	buf := engine.ExportToJSON(g.handleRef())
	s := engine.BufferString(buf)
	engine.Free(buf)
	return s
}

// WKT serializes the geometry as well-known text. The export uses the
// engine's own string allocator, so the buffer is released through
// StringFree, not the general Free.
func (g *Geometry) WKT() string {
	buf, st := engine.ExportToWKT(g.handleRef())
	if st != engine.StatusNone {
		panic(fmt.Sprintf("vector: WKT export: %s", st))
	}
	s := engine.BufferString(buf)
	engine.StringFree(buf)
	return s
}

// SetPoint2D overwrites the point at index i. For a polygon the index
// addresses the exterior ring. Index behavior past the current end is the
// engine's: the vertex slice grows with zero points.
func (g *Geometry) SetPoint2D(i int, x, y float64) {
	engine.SetPoint2D(g.handleRef(), i, x, y)
}

// Point reads the coordinate triple at index i.
func (g *Geometry) Point(i int) Vertex {
	x, y, z := engine.GetPoint(g.handleRef(), i)
	return Vertex{X: x, Y: y, Z: z}
}

// PointCount reports the number of addressable points.
func (g *Geometry) PointCount() int {
	return engine.PointCount(g.handleRef())
}

// Points reads every point from index 0 to PointCount-1, in order. This is
// an eager materialization.
func (g *Geometry) Points() []Vertex {
	n := engine.PointCount(g.handleRef())
	out := make([]Vertex, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.Point(i))
	}
	return out
}

// ConvexHull computes the convex hull as a new owned geometry. The receiver
// is not mutated. A single point hulls to itself; a rectangle hulls to a
// polygon with the same four corners.
func (g *Geometry) ConvexHull() *Geometry {
	return ownedGeometry(engine.ConvexHull(g.handleRef()))
}

// subGeometry returns the i-th child as a non-owned alias. The returned
// value shares memory owned by the parent: it must not be retained past the
// parent's lifetime, and nothing checks that at runtime.
func (g *Geometry) subGeometry(i int) *Geometry {
	h := engine.GeometryRef(g.handleRef(), i)
	if h == 0 {
		panic("vector: sub-geometry index out of range")
	}
	return aliasedGeometry(h)
}

// AddGeometry transfers ownership of sub into g as a new child part. sub
// must currently be owned; afterwards its ownership flag is false and any
// owning use of it panics. A failed engine add is a contract violation.
func (g *Geometry) AddGeometry(sub *Geometry) {
	if sub.state != stateOwned {
		panic("vector: AddGeometry requires an owned sub-geometry")
	}
	st := engine.AddGeometryDirectly(g.handleRef(), sub.handleRef())
	if st != engine.StatusNone {
		panic(fmt.Sprintf("vector: AddGeometry: %s", st))
	}
	sub.state = stateAliased
}

// Close releases the underlying engine object if, and only if, this wrapper
// owns it. Closing an aliased or unbound geometry is a strict no-op that
// leaves the value usable; closing twice is a no-op.
func (g *Geometry) Close() {
	if g.state != stateOwned {
		return
	}
	engine.DestroyGeometry(g.handle)
	g.handle = 0
	g.state = stateClosed
}
