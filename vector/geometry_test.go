package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geodataio/layerkit/internal/engine"
)

func TestBBoxCorners(t *testing.T) {
	g := BBox(-5, -4, 5, 4)
	defer g.Close()

	require.Equal(t, WKBPolygon, g.Type())
	pts := g.Points()
	require.Len(t, pts, 5)

	// Ring order is fixed: NW, NE, SE, SW, back to NW.
	assert.Equal(t, Vertex{X: -5, Y: 4}, pts[0])
	assert.Equal(t, Vertex{X: 5, Y: 4}, pts[1])
	assert.Equal(t, Vertex{X: 5, Y: -4}, pts[2])
	assert.Equal(t, Vertex{X: -5, Y: -4}, pts[3])
	assert.Equal(t, pts[0], pts[4])
}

func TestGeometryFromWKT(t *testing.T) {
	g := GeometryFromWKT("POLYGON ((0 0, 4 0, 4 4, 0 4, 0 0))")
	defer g.Close()

	assert.Equal(t, WKBPolygon, g.Type())
	assert.Equal(t, 1, g.GeometryCount())
	assert.Equal(t, 5, g.PointCount())
	assert.Equal(t, Vertex{X: 4, Y: 4}, g.Point(2))
}

func TestWKTRoundTrip(t *testing.T) {
	g := GeometryFromWKT("POLYGON ((0 0, 0 1, 1 1, 1 0, 0 0))")
	defer g.Close()

	assert.Equal(t, []Vertex{
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 1, Y: 1, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 0},
	}, g.Points())

	// Serialized text parses back to an equivalent geometry, formatting aside.
	back := GeometryFromWKT(g.WKT())
	defer back.Close()
	assert.Equal(t, g.Points(), back.Points())
	assert.Equal(t, g.Type(), back.Type())
}

func TestGeometryFromWKTMalformed(t *testing.T) {
	assert.Panics(t, func() { GeometryFromWKT("POLYGON this is not wkt") })
	assert.Panics(t, func() { GeometryFromWKT("") })
}

func TestAddGeometryTransfersOwnership(t *testing.T) {
	parent := NewGeometry(WKBGeometryCollection)
	defer parent.Close()

	sub := GeometryFromWKT("POINT (1 2)")
	parent.AddGeometry(sub)
	assert.Equal(t, 1, parent.GeometryCount())

	// The donor lost ownership: a second transfer is a contract violation
	// and must leave the parent unchanged.
	assert.Panics(t, func() { parent.AddGeometry(sub) })
	assert.Equal(t, 1, parent.GeometryCount())

	// Closing the donor must not free memory now owned by the parent.
	sub.Close()
	child := parent.subGeometry(0)
	assert.Equal(t, Vertex{X: 1, Y: 2}, child.Point(0))
}

func TestAddGeometryRejectsAliased(t *testing.T) {
	parent := GeometryFromWKT("MULTIPOINT ((1 1), (2 2))")
	defer parent.Close()
	collection := NewGeometry(WKBGeometryCollection)
	defer collection.Close()

	alias := parent.subGeometry(0)
	assert.Panics(t, func() { collection.AddGeometry(alias) })
	assert.Equal(t, 0, collection.GeometryCount())
	assert.Equal(t, 2, parent.GeometryCount())
}

func TestSubGeometryOutOfRange(t *testing.T) {
	g := GeometryFromWKT("MULTIPOINT ((1 1))")
	defer g.Close()
	assert.Panics(t, func() { g.subGeometry(1) })
}

func TestConvexHull(t *testing.T) {
	t.Run("point hulls to itself", func(t *testing.T) {
		g := GeometryFromWKT("POINT (7 3)")
		defer g.Close()
		hull := g.ConvexHull()
		defer hull.Close()

		assert.Equal(t, WKBPoint, hull.Type())
		assert.Equal(t, Vertex{X: 7, Y: 3}, hull.Point(0))
	})

	t.Run("rectangle hulls to its corners", func(t *testing.T) {
		g := BBox(0, 0, 10, 6)
		defer g.Close()
		hull := g.ConvexHull()
		defer hull.Close()

		require.Equal(t, WKBPolygon, hull.Type())
		pts := hull.Points()
		require.Len(t, pts, 5)
		corners := map[Vertex]bool{}
		for _, p := range pts[:4] {
			corners[p] = true
		}
		for _, want := range []Vertex{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 6}, {X: 0, Y: 6}} {
			assert.True(t, corners[want], "hull missing corner %v", want)
		}
	})
}

func TestSerializationFreesBuffers(t *testing.T) {
	g := GeometryFromWKT("LINESTRING (0 0, 1 1)")
	defer g.Close()

	base := engine.LiveBuffers()
	assert.Contains(t, g.JSON(), `"LineString"`)
	assert.Contains(t, g.WKT(), "LINESTRING")
	assert.Equal(t, base, engine.LiveBuffers())
}

func TestBindOnce(t *testing.T) {
	g := lazyFeatureGeometry()
	assert.False(t, g.bound())
	assert.Panics(t, func() { g.handleRef() })

	h := engine.CreateGeometry(engine.WKBPoint)
	g.bind(h)
	assert.True(t, g.bound())
	assert.Panics(t, func() { g.bind(h) })

	owned := GeometryFromWKT("POINT (0 0)")
	defer owned.Close()
	assert.Panics(t, func() { owned.bind(h) })

	engine.DestroyGeometry(h)
}

func TestCloseOnlyReleasesOwned(t *testing.T) {
	parent := GeometryFromWKT("MULTIPOINT ((1 1), (2 2))")
	alias := parent.subGeometry(0)

	// Closing an alias is a strict no-op: nothing is released and the alias
	// itself stays usable.
	alias.Close()
	assert.Equal(t, 2, parent.GeometryCount())
	assert.Equal(t, Vertex{X: 1, Y: 1}, alias.Point(0))

	parent.Close()
	parent.Close() // second close is a no-op
	assert.Panics(t, func() { parent.Type() })
}

func TestSetPoint2D(t *testing.T) {
	g := NewGeometry(WKBLineString)
	defer g.Close()

	g.SetPoint2D(0, 1, 2)
	g.SetPoint2D(1, 3, 4)
	assert.Equal(t, []Vertex{{X: 1, Y: 2}, {X: 3, Y: 4}}, g.Points())
}
