package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPairing(t *testing.T) {
	base := LiveBuffers()

	g, st := CreateFromWKT("POINT (3 4)")
	require.Equal(t, StatusNone, st)
	defer DestroyGeometry(g)

	jsonBuf := ExportToJSON(g)
	assert.Contains(t, BufferString(jsonBuf), `"Point"`)
	Free(jsonBuf)

	wktBuf, st := ExportToWKT(g)
	require.Equal(t, StatusNone, st)
	assert.Equal(t, "POINT(3 4)", BufferString(wktBuf))
	StringFree(wktBuf)

	assert.Equal(t, base, LiveBuffers())
}

func TestBufferMispairPanics(t *testing.T) {
	g, st := CreateFromWKT("POINT (1 1)")
	require.Equal(t, StatusNone, st)
	defer DestroyGeometry(g)

	wktBuf, st := ExportToWKT(g)
	require.Equal(t, StatusNone, st)
	assert.Panics(t, func() { Free(wktBuf) })
	StringFree(wktBuf)

	jsonBuf := ExportToJSON(g)
	assert.Panics(t, func() { StringFree(jsonBuf) })
	Free(jsonBuf)
}

func TestFreedBufferIsInvalid(t *testing.T) {
	g, st := CreateFromWKT("POINT (1 1)")
	require.Equal(t, StatusNone, st)
	defer DestroyGeometry(g)

	buf := ExportToJSON(g)
	Free(buf)
	assert.Panics(t, func() { BufferString(buf) })
	assert.Panics(t, func() { Free(buf) })
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "none", StatusNone.String())
	assert.Equal(t, "corrupt data", StatusCorruptData.String())
	assert.Equal(t, "unknown status", Status(42).String())
}
