package raster

import (
	"fmt"
	"image"
	"image/color"
	"os"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Band is one channel of pixel data in row-major order. Values are stored
// as float64 internally and converted on read, so a Byte band and a Float64
// band of the same image occupy the same memory; the DataType tag records
// what the pixels mean and which typed reads are allowed.
type Band struct {
	dtype DataType
	xsize int
	ysize int
	data  []float64
}

// NewBand wraps pixel data as a band. len(data) must be xsize*ysize.
func NewBand(dtype DataType, xsize, ysize int, data []float64) *Band {
	if len(data) != xsize*ysize {
		panic(fmt.Sprintf("raster: band data length %d, want %d", len(data), xsize*ysize))
	}
	return &Band{dtype: dtype, xsize: xsize, ysize: ysize, data: data}
}

// Type reports the band's pixel type.
func (b *Band) Type() DataType { return b.dtype }

// XSize reports the band width in pixels.
func (b *Band) XSize() int { return b.xsize }

// YSize reports the band height in pixels.
func (b *Band) YSize() int { return b.ysize }

// At returns the pixel at (x, y). Out of range panics.
func (b *Band) At(x, y int) float64 {
	if x < 0 || x >= b.xsize || y < 0 || y >= b.ysize {
		panic(fmt.Sprintf("raster: pixel (%d, %d) out of %dx%d band", x, y, b.xsize, b.ysize))
	}
	return b.data[y*b.xsize+x]
}

// Row returns the y-th row of pixels. The slice aliases band storage.
func (b *Band) Row(y int) []float64 {
	if y < 0 || y >= b.ysize {
		panic(fmt.Sprintf("raster: row %d out of %d", y, b.ysize))
	}
	return b.data[y*b.xsize : (y+1)*b.xsize]
}

// ReadAs copies the whole band as pixels of type T. T must match the band's
// declared DataType exactly; a mismatch panics.
func ReadAs[T PixelType](b *Band) []T {
	if want := DataTypeOf[T](); want != b.dtype {
		panic(fmt.Sprintf("raster: read %s band as %s", b.dtype, want))
	}
	out := make([]T, len(b.data))
	for i, v := range b.data {
		out[i] = T(v)
	}
	return out
}

// Raster is an opened image: one or more bands of identical dimensions.
type Raster struct {
	bands []*Band
	xsize int
	ysize int
}

// XSize reports the raster width in pixels.
func (r *Raster) XSize() int { return r.xsize }

// YSize reports the raster height in pixels.
func (r *Raster) YSize() int { return r.ysize }

// BandCount reports the number of bands.
func (r *Raster) BandCount() int { return len(r.bands) }

// Band returns the i-th band, counting from zero.
func (r *Raster) Band(i int) (*Band, error) {
	if i < 0 || i >= len(r.bands) {
		return nil, fmt.Errorf("raster: no band %d in %d-band raster", i, len(r.bands))
	}
	return r.bands[i], nil
}

// OpenImage decodes a PNG, JPEG, TIFF or WebP file into bands. Grayscale
// images become a single Byte band, 16-bit grayscale a single UInt16 band,
// everything else four Byte bands in R, G, B, A order.
func OpenImage(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("raster: decode %s: %w", path, err)
	}
	return FromImage(img), nil
}

// FromImage splits a decoded image into bands.
func FromImage(img image.Image) *Raster {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	switch im := img.(type) {
	case *image.Gray:
		data := make([]float64, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				data[y*w+x] = float64(im.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
		return &Raster{bands: []*Band{NewBand(Byte, w, h, data)}, xsize: w, ysize: h}
	case *image.Gray16:
		data := make([]float64, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				data[y*w+x] = float64(im.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
		return &Raster{bands: []*Band{NewBand(UInt16, w, h, data)}, xsize: w, ysize: h}
	}

	bands := make([]*Band, 4)
	planes := make([][]float64, 4)
	for i := range planes {
		planes[i] = make([]float64, w*h)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			i := y*w + x
			planes[0][i] = float64(c.R)
			planes[1][i] = float64(c.G)
			planes[2][i] = float64(c.B)
			planes[3][i] = float64(c.A)
		}
	}
	for i := range bands {
		bands[i] = NewBand(Byte, w, h, planes[i])
	}
	return &Raster{bands: bands, xsize: w, ysize: h}
}
