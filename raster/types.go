// Package raster reads image files into typed pixel bands. A Raster is a
// stack of same-sized bands, one per channel, each carrying a declared
// DataType. Band reads are type checked: asking for a pixel type that does
// not match the band's declared type is a caller bug and panics.
package raster

// DataType identifies the storage type of a band's pixels.
type DataType int

const (
	Unknown DataType = iota
	Byte
	UInt16
	Int16
	UInt32
	Int32
	Float32
	Float64
)

// Size reports the width of one pixel in bytes, 0 for Unknown.
func (d DataType) Size() int {
	switch d {
	case Byte:
		return 1
	case UInt16, Int16:
		return 2
	case UInt32, Int32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

func (d DataType) String() string {
	switch d {
	case Byte:
		return "Byte"
	case UInt16:
		return "UInt16"
	case Int16:
		return "Int16"
	case UInt32:
		return "UInt32"
	case Int32:
		return "Int32"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	}
	return "Unknown"
}

// PixelType is the set of Go types a band can be read as.
type PixelType interface {
	uint8 | uint16 | int16 | uint32 | int32 | float32 | float64
}

// DataTypeOf maps a pixel type to its DataType tag.
func DataTypeOf[T PixelType]() DataType {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return Byte
	case uint16:
		return UInt16
	case int16:
		return Int16
	case uint32:
		return UInt32
	case int32:
		return Int32
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return Unknown
}
