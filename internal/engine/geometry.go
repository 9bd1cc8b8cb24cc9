package engine

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// GeomType is a well-known-binary geometry type code.
type GeomType int

const (
	WKBUnknown            GeomType = 0
	WKBPoint              GeomType = 1
	WKBLineString         GeomType = 2
	WKBPolygon            GeomType = 3
	WKBMultiPoint         GeomType = 4
	WKBMultiLineString    GeomType = 5
	WKBMultiPolygon       GeomType = 6
	WKBGeometryCollection GeomType = 7
	WKBLinearRing         GeomType = 101
)

func (t GeomType) String() string {
	switch t {
	case WKBPoint:
		return "Point"
	case WKBLineString:
		return "LineString"
	case WKBPolygon:
		return "Polygon"
	case WKBMultiPoint:
		return "MultiPoint"
	case WKBMultiLineString:
		return "MultiLineString"
	case WKBMultiPolygon:
		return "MultiPolygon"
	case WKBGeometryCollection:
		return "GeometryCollection"
	case WKBLinearRing:
		return "LinearRing"
	}
	return "Unknown"
}

// geomNode is the engine's internal geometry representation. Curve types use
// pts; polygons hold their rings in subs, multi types and collections hold
// their members in subs. A node may be shared between a parent container and
// an aliasing handle; the handle table never owns nodes, handles do.
type geomNode struct {
	typ  GeomType
	pts  []orb.Point
	subs []*geomNode
}

func geom(h GeomHandle) *geomNode {
	n, ok := geoms[h]
	if !ok {
		panic("engine: invalid geometry handle")
	}
	return n
}

func registerGeom(n *geomNode) GeomHandle {
	h := GeomHandle(newID())
	geoms[h] = n
	return h
}

// CreateGeometry allocates a new empty geometry of the given WKB type code.
// Unknown type codes are a programming error.
func CreateGeometry(t GeomType) GeomHandle {
	switch t {
	case WKBPoint, WKBLineString, WKBPolygon, WKBMultiPoint,
		WKBMultiLineString, WKBMultiPolygon, WKBGeometryCollection, WKBLinearRing:
	default:
		panic("engine: create geometry with unsupported type code")
	}
	mu.Lock()
	defer mu.Unlock()
	return registerGeom(&geomNode{typ: t})
}

// CreateFromWKT parses a well-known-text string. A zero handle is returned
// together with a non-ok status when the text does not parse.
func CreateFromWKT(s string) (GeomHandle, Status) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return 0, StatusCorruptData
	}
	mu.Lock()
	defer mu.Unlock()
	return registerGeom(nodeFromOrb(g)), StatusNone
}

// CreateFromOrb wraps an orb geometry as a new engine geometry. The input is
// deep-copied, the caller keeps its value.
func CreateFromOrb(g orb.Geometry) GeomHandle {
	if g == nil {
		panic("engine: create geometry from nil orb geometry")
	}
	mu.Lock()
	defer mu.Unlock()
	return registerGeom(nodeFromOrb(orb.Clone(g)))
}

// DestroyGeometry releases a geometry handle. Child nodes reachable from the
// node are released with it, and every handle aliasing the node or one of
// its children is dropped from the handle table, so aliases dangle
// afterwards, exactly as in a native library.
func DestroyGeometry(h GeomHandle) {
	mu.Lock()
	defer mu.Unlock()
	n, ok := geoms[h]
	if !ok {
		panic("engine: destroy of invalid geometry handle")
	}
	releaseNode(n)
}

// releaseNode drops every handle aliasing n or a node reachable from it.
// Callers hold mu.
func releaseNode(n *geomNode) {
	dead := map[*geomNode]struct{}{}
	n.markReachable(dead)
	for h, node := range geoms {
		if _, ok := dead[node]; ok {
			delete(geoms, h)
		}
	}
}

func (n *geomNode) markReachable(set map[*geomNode]struct{}) {
	if _, ok := set[n]; ok {
		return
	}
	set[n] = struct{}{}
	for _, s := range n.subs {
		s.markReachable(set)
	}
}

// GeometryType reports the WKB type code of a geometry.
func GeometryType(h GeomHandle) GeomType {
	mu.Lock()
	defer mu.Unlock()
	return geom(h).typ
}

// GeometryCount reports the number of direct sub-geometries: rings for a
// polygon, members for multi types and collections, zero otherwise.
func GeometryCount(h GeomHandle) int {
	mu.Lock()
	defer mu.Unlock()
	return len(geom(h).subs)
}

// GeometryRef returns an aliasing handle to the i-th sub-geometry. The
// returned handle shares memory owned by the parent and must never be
// destroyed independently. A zero handle is returned when i is out of range.
func GeometryRef(h GeomHandle, i int) GeomHandle {
	mu.Lock()
	defer mu.Unlock()
	n := geom(h)
	if i < 0 || i >= len(n.subs) {
		return 0
	}
	return registerGeom(n.subs[i])
}

// AddGeometryDirectly moves the sub geometry into the parent container. On
// success the parent owns the node; the sub handle remains a valid alias and
// must no longer be destroyed by the caller.
func AddGeometryDirectly(parent, sub GeomHandle) Status {
	mu.Lock()
	defer mu.Unlock()
	p, s := geom(parent), geom(sub)
	switch p.typ {
	case WKBPolygon:
		if s.typ != WKBLinearRing {
			return StatusUnsupportedGeometryType
		}
	case WKBMultiPoint:
		if s.typ != WKBPoint {
			return StatusUnsupportedGeometryType
		}
	case WKBMultiLineString:
		if s.typ != WKBLineString {
			return StatusUnsupportedGeometryType
		}
	case WKBMultiPolygon:
		if s.typ != WKBPolygon {
			return StatusUnsupportedGeometryType
		}
	case WKBGeometryCollection:
		// accepts anything
	default:
		return StatusUnsupportedGeometryType
	}
	p.subs = append(p.subs, s)
	return StatusNone
}

// vertexSlice returns the coordinate slice a point index addresses: the
// node's own points for curve types, the exterior ring for a polygon.
func (n *geomNode) vertexSlice() []orb.Point {
	switch n.typ {
	case WKBPoint, WKBLineString, WKBLinearRing:
		return n.pts
	case WKBPolygon:
		if len(n.subs) > 0 {
			return n.subs[0].pts
		}
	}
	return nil
}

// PointCount reports the number of addressable points of a geometry. For a
// polygon this is the point count of its exterior ring.
func PointCount(h GeomHandle) int {
	mu.Lock()
	defer mu.Unlock()
	return len(geom(h).vertexSlice())
}

// GetPoint reads one coordinate triple. The engine stores 2D coordinates, so
// z is always zero. Out-of-range indexes are a programming error.
func GetPoint(h GeomHandle, i int) (x, y, z float64) {
	mu.Lock()
	defer mu.Unlock()
	pts := geom(h).vertexSlice()
	if i < 0 || i >= len(pts) {
		panic("engine: point index out of range")
	}
	return pts[i][0], pts[i][1], 0
}

// SetPoint2D writes the point at index i, growing the vertex slice with
// zero points when i addresses past the current end.
func SetPoint2D(h GeomHandle, i int, x, y float64) {
	mu.Lock()
	defer mu.Unlock()
	n := geom(h)
	if i < 0 {
		panic("engine: negative point index")
	}
	switch n.typ {
	case WKBPoint, WKBLineString, WKBLinearRing:
		for len(n.pts) <= i {
			n.pts = append(n.pts, orb.Point{})
		}
		n.pts[i] = orb.Point{x, y}
	case WKBPolygon:
		if len(n.subs) == 0 {
			panic("engine: set point on polygon without rings")
		}
		ring := n.subs[0]
		for len(ring.pts) <= i {
			ring.pts = append(ring.pts, orb.Point{})
		}
		ring.pts[i] = orb.Point{x, y}
	default:
		panic("engine: set point on non-curve geometry")
	}
}

// ConvexHull computes the convex hull of all vertices of a geometry and
// returns it as a new independent geometry: a point for a single vertex, a
// line for a collinear set, a closed polygon otherwise.
func ConvexHull(h GeomHandle) GeomHandle {
	mu.Lock()
	defer mu.Unlock()
	var all []orb.Point
	geom(h).appendVertices(&all)
	return registerGeom(hullNode(all))
}

func (n *geomNode) appendVertices(out *[]orb.Point) {
	*out = append(*out, n.pts...)
	for _, s := range n.subs {
		s.appendVertices(out)
	}
}

func hullNode(pts []orb.Point) *geomNode {
	hull := monotoneChain(pts)
	switch len(hull) {
	case 0:
		return &geomNode{typ: WKBGeometryCollection}
	case 1:
		return &geomNode{typ: WKBPoint, pts: hull}
	case 2:
		return &geomNode{typ: WKBLineString, pts: hull}
	}
	ring := append(hull, hull[0])
	return &geomNode{
		typ:  WKBPolygon,
		subs: []*geomNode{{typ: WKBLinearRing, pts: ring}},
	}
}

// monotoneChain is Andrew's monotone chain hull over 2D points, returning
// hull vertices counter-clockwise without the closing point.
func monotoneChain(pts []orb.Point) []orb.Point {
	uniq := make([]orb.Point, 0, len(pts))
	seen := make(map[orb.Point]struct{}, len(pts))
	for _, p := range pts {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			uniq = append(uniq, p)
		}
	}
	if len(uniq) <= 2 {
		return uniq
	}
	sort.Slice(uniq, func(i, j int) bool {
		if uniq[i][0] != uniq[j][0] {
			return uniq[i][0] < uniq[j][0]
		}
		return uniq[i][1] < uniq[j][1]
	})

	cross := func(o, a, b orb.Point) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}

	var lower []orb.Point
	for _, p := range uniq {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	var upper []orb.Point
	for i := len(uniq) - 1; i >= 0; i-- {
		p := uniq[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 2 {
		return uniq[:2]
	}
	return hull
}

// ExportToWKT serializes a geometry to well-known text. The returned buffer
// comes from the geometry string allocator and must be released with
// StringFree.
func ExportToWKT(h GeomHandle) (BufferHandle, Status) {
	mu.Lock()
	defer mu.Unlock()
	g := orbFromNode(geom(h))
	if g == nil {
		return 0, StatusUnsupportedGeometryType
	}
	return newBuffer(wkt.MarshalString(g), allocString), StatusNone
}

// ExportToJSON serializes a geometry to GeoJSON. The returned buffer comes
// from the general allocator and must be released with Free.
func ExportToJSON(h GeomHandle) BufferHandle {
	mu.Lock()
	defer mu.Unlock()
	g := orbFromNode(geom(h))
	if g == nil {
		panic("engine: json export of unsupported geometry")
	}
	data, err := geojson.NewGeometry(g).MarshalJSON()
	if err != nil {
		panic("engine: json export failed: " + err.Error())
	}
	return newBuffer(string(data), allocGeneral)
}

// ExportToOrb returns a deep copy of the geometry as an orb value.
func ExportToOrb(h GeomHandle) orb.Geometry {
	mu.Lock()
	defer mu.Unlock()
	return orbFromNode(geom(h))
}

// GeometryBound reports the envelope of a geometry.
func GeometryBound(h GeomHandle) orb.Bound {
	mu.Lock()
	defer mu.Unlock()
	return geom(h).bound()
}

func (n *geomNode) bound() orb.Bound {
	var pts []orb.Point
	n.appendVertices(&pts)
	if len(pts) == 0 {
		return orb.Bound{}
	}
	b := orb.Bound{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b = b.Extend(p)
	}
	return b
}

func (n *geomNode) clone() *geomNode {
	c := &geomNode{typ: n.typ}
	if n.pts != nil {
		c.pts = append([]orb.Point(nil), n.pts...)
	}
	for _, s := range n.subs {
		c.subs = append(c.subs, s.clone())
	}
	return c
}

func nodeFromOrb(g orb.Geometry) *geomNode {
	switch v := g.(type) {
	case orb.Point:
		return &geomNode{typ: WKBPoint, pts: []orb.Point{v}}
	case orb.MultiPoint:
		n := &geomNode{typ: WKBMultiPoint}
		for _, p := range v {
			n.subs = append(n.subs, &geomNode{typ: WKBPoint, pts: []orb.Point{p}})
		}
		return n
	case orb.LineString:
		return &geomNode{typ: WKBLineString, pts: append([]orb.Point(nil), v...)}
	case orb.MultiLineString:
		n := &geomNode{typ: WKBMultiLineString}
		for _, ls := range v {
			n.subs = append(n.subs, nodeFromOrb(ls))
		}
		return n
	case orb.Ring:
		return &geomNode{typ: WKBLinearRing, pts: append([]orb.Point(nil), v...)}
	case orb.Polygon:
		n := &geomNode{typ: WKBPolygon}
		for _, r := range v {
			n.subs = append(n.subs, nodeFromOrb(r))
		}
		return n
	case orb.MultiPolygon:
		n := &geomNode{typ: WKBMultiPolygon}
		for _, p := range v {
			n.subs = append(n.subs, nodeFromOrb(p))
		}
		return n
	case orb.Collection:
		n := &geomNode{typ: WKBGeometryCollection}
		for _, c := range v {
			n.subs = append(n.subs, nodeFromOrb(c))
		}
		return n
	case orb.Bound:
		return nodeFromOrb(v.ToPolygon())
	}
	panic("engine: unsupported orb geometry")
}

func orbFromNode(n *geomNode) orb.Geometry {
	switch n.typ {
	case WKBPoint:
		if len(n.pts) == 0 {
			return orb.Point{}
		}
		return n.pts[0]
	case WKBLineString:
		return orb.LineString(append([]orb.Point(nil), n.pts...))
	case WKBLinearRing:
		return orb.Ring(append([]orb.Point(nil), n.pts...))
	case WKBPolygon:
		poly := make(orb.Polygon, 0, len(n.subs))
		for _, r := range n.subs {
			poly = append(poly, orb.Ring(append([]orb.Point(nil), r.pts...)))
		}
		return poly
	case WKBMultiPoint:
		mp := make(orb.MultiPoint, 0, len(n.subs))
		for _, p := range n.subs {
			if len(p.pts) > 0 {
				mp = append(mp, p.pts[0])
			}
		}
		return mp
	case WKBMultiLineString:
		mls := make(orb.MultiLineString, 0, len(n.subs))
		for _, ls := range n.subs {
			mls = append(mls, orb.LineString(append([]orb.Point(nil), ls.pts...)))
		}
		return mls
	case WKBMultiPolygon:
		mp := make(orb.MultiPolygon, 0, len(n.subs))
		for _, p := range n.subs {
			mp = append(mp, orbFromNode(p).(orb.Polygon))
		}
		return mp
	case WKBGeometryCollection:
		coll := make(orb.Collection, 0, len(n.subs))
		for _, c := range n.subs {
			coll = append(coll, orbFromNode(c))
		}
		return coll
	}
	return nil
}
