// Package engine is the handle-based geometry and feature engine backing the
// vector package. It deliberately keeps the calling conventions of a native
// C library: opaque integer handles, numeric status codes, explicit destroy
// operations, and exported strings that live in engine-owned buffers until
// freed with the matching free routine. The wrapper layer above it is
// responsible for pairing every allocation with exactly one release.
//
// Geometry math is backed by github.com/paulmach/orb.
package engine

import "sync"

// Handle types. The zero value of each is the null handle.
type (
	GeomHandle    uint64
	FeatureHandle uint64
	DefnHandle    uint64
	LayerHandle   uint64
	DatasetHandle uint64
	BufferHandle  uint64
)

// Status is a numeric return code. StatusNone is the only non-error value.
type Status int

const (
	StatusNone                    Status = 0
	StatusNotEnoughData           Status = 1
	StatusNotEnoughMemory         Status = 2
	StatusUnsupportedGeometryType Status = 3
	StatusUnsupportedOperation    Status = 4
	StatusCorruptData             Status = 5
	StatusFailure                 Status = 6
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusNotEnoughData:
		return "not enough data"
	case StatusNotEnoughMemory:
		return "not enough memory"
	case StatusUnsupportedGeometryType:
		return "unsupported geometry type"
	case StatusUnsupportedOperation:
		return "unsupported operation"
	case StatusCorruptData:
		return "corrupt data"
	case StatusFailure:
		return "failure"
	}
	return "unknown status"
}

// The engine is single-threaded-affine in spirit; the mutex only keeps the
// handle tables consistent, it does not make interleaved mutation of one
// dataset from several goroutines a supported pattern.
var (
	mu     sync.Mutex
	nextID uint64

	geoms    = map[GeomHandle]*geomNode{}
	features = map[FeatureHandle]*featureRec{}
	defns    = map[DefnHandle]*defnRec{}
	layers   = map[LayerHandle]*layerRec{}
	datasets = map[DatasetHandle]*datasetRec{}
	buffers  = map[BufferHandle]*bufferRec{}
)

func newID() uint64 {
	nextID++
	return nextID
}

// allocator identifies which allocation pool an exported buffer came from.
// Buffers must be released through the free routine matching their pool.
type allocator uint8

const (
	allocGeneral allocator = iota + 1 // paired with Free
	allocString                       // paired with StringFree
)

type bufferRec struct {
	data  string
	alloc allocator
}

func newBuffer(data string, alloc allocator) BufferHandle {
	h := BufferHandle(newID())
	buffers[h] = &bufferRec{data: data, alloc: alloc}
	return h
}

// BufferString returns the contents of an exported buffer. The buffer stays
// live until freed.
func BufferString(h BufferHandle) string {
	mu.Lock()
	defer mu.Unlock()
	b, ok := buffers[h]
	if !ok {
		panic("engine: invalid buffer handle")
	}
	return b.data
}

// Free releases a buffer obtained from the general allocator (ExportToJSON).
// Freeing a string-allocator buffer through Free is a contract violation.
func Free(h BufferHandle) {
	freeBuffer(h, allocGeneral, "Free")
}

// StringFree releases a buffer obtained from the geometry string allocator
// (ExportToWKT). It must not be used for general-allocator buffers.
func StringFree(h BufferHandle) {
	freeBuffer(h, allocString, "StringFree")
}

func freeBuffer(h BufferHandle, want allocator, routine string) {
	mu.Lock()
	defer mu.Unlock()
	b, ok := buffers[h]
	if !ok {
		panic("engine: invalid buffer handle")
	}
	if b.alloc != want {
		panic("engine: buffer released through " + routine + " but was allocated by a different allocator")
	}
	delete(buffers, h)
}

// LiveBuffers reports the number of exported buffers not yet freed. A steady
// nonzero value after a sequence of export calls indicates a leak.
func LiveBuffers() int {
	mu.Lock()
	defer mu.Unlock()
	return len(buffers)
}

// LiveGeometries reports the number of registered geometry handles, aliases
// included. Growth across a balanced create/destroy sequence indicates a
// handle leak.
func LiveGeometries() int {
	mu.Lock()
	defer mu.Unlock()
	return len(geoms)
}
