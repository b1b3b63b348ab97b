// Package geotiff writes uncompressed RGBA GeoTIFF files georeferenced
// in Web Mercator (EPSG:3857). The writer emits a single baseline IFD
// with one strip, which is enough for QGIS, GDAL and friends to pick up
// the raster and its placement.
package geotiff

import (
	"bytes"
	"encoding/binary"
	"image"
	"io"
	"math"
	"sort"
)

// TIFF field types used by this writer.
const (
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeRat    = 5
	typeDouble = 12
)

// Baseline and GeoTIFF tag IDs.
const (
	tagImageWidth       = 256
	tagImageLength      = 257
	tagBitsPerSample    = 258
	tagCompression      = 259
	tagPhotometric      = 262
	tagImageDescription = 270
	tagStripOffsets     = 273
	tagSamplesPerPixel  = 277
	tagRowsPerStrip     = 278
	tagStripByteCounts  = 279
	tagXResolution      = 282
	tagYResolution      = 283
	tagResolutionUnit   = 296
	tagDateTime         = 306

	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
)

var order = binary.LittleEndian

// WebMercator ties raster pixel (0,0) to a model-space position in
// EPSG:3857 meters. MetersPerPixel applies to both axes: Web Mercator
// pixels are square.
type WebMercator struct {
	OriginX        float64 // easting of the top-left corner
	OriginY        float64 // northing of the top-left corner
	MetersPerPixel float64
	Description    string // optional ImageDescription tag
	DateTime       string // optional DateTime tag, "YYYY:MM:DD HH:MM:SS"
}

type field struct {
	tag   uint16
	kind  uint16
	count uint32
	data  []byte
}

// Encode writes m to w as an uncompressed RGBA GeoTIFF placed by ref.
func Encode(w io.Writer, m image.Image, ref WebMercator) error {
	b := m.Bounds()
	width, height := b.Dx(), b.Dy()

	pixels := flattenRGBA(m)

	fields := []field{
		{tagImageWidth, typeShort, 1, u16(uint16(width))},
		{tagImageLength, typeShort, 1, u16(uint16(height))},
		{tagBitsPerSample, typeShort, 4, u16s(8, 8, 8, 8)},
		{tagCompression, typeShort, 1, u16(1)},
		{tagPhotometric, typeShort, 1, u16(2)},
		{tagSamplesPerPixel, typeShort, 1, u16(4)},
		{tagRowsPerStrip, typeShort, 1, u16(uint16(height))},
		{tagXResolution, typeRat, 1, rational(72, 1)},
		{tagYResolution, typeRat, 1, rational(72, 1)},
		{tagResolutionUnit, typeShort, 1, u16(2)},
		{tagStripOffsets, typeLong, 1, make([]byte, 4)},
		{tagStripByteCounts, typeLong, 1, u32(uint32(len(pixels)))},

		// GeoKeyDirectory: version 1.1.0, three keys.
		// GTModelType=Projected, GTRasterType=PixelIsArea,
		// ProjectedCSType=EPSG:3857.
		{tagGeoKeyDirectory, typeShort, 16, u16s(
			1, 1, 0, 3,
			1024, 0, 1, 1,
			1025, 0, 1, 1,
			3072, 0, 1, 3857,
		)},
		{tagModelPixelScale, typeDouble, 3, doubles(ref.MetersPerPixel, ref.MetersPerPixel, 0)},
		// Ties raster (0,0,0) to model (OriginX, OriginY, 0).
		{tagModelTiepoint, typeDouble, 6, doubles(0, 0, 0, ref.OriginX, ref.OriginY, 0)},
	}
	if ref.Description != "" {
		s := append([]byte(ref.Description), 0)
		fields = append(fields, field{tagImageDescription, typeASCII, uint32(len(s)), s})
	}
	if ref.DateTime != "" {
		s := append([]byte(ref.DateTime), 0)
		fields = append(fields, field{tagDateTime, typeASCII, uint32(len(s)), s})
	}

	sort.Slice(fields, func(i, j int) bool { return fields[i].tag < fields[j].tag })

	// Layout: 8-byte header, IFD, out-of-line values, pixel strip.
	ifdSize := 2 + 12*len(fields) + 4
	overflowStart := 8 + ifdSize

	var overflow bytes.Buffer
	for i := range fields {
		f := &fields[i]
		if len(f.data) > 4 {
			off := uint32(overflowStart + overflow.Len())
			overflow.Write(f.data)
			f.data = u32(off)
		}
	}

	stripOffset := uint32(overflowStart + overflow.Len())
	for i := range fields {
		if fields[i].tag == tagStripOffsets {
			fields[i].data = u32(stripOffset)
		}
	}

	var out bytes.Buffer
	out.Write([]byte{'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00})
	binary.Write(&out, order, uint16(len(fields)))
	for _, f := range fields {
		binary.Write(&out, order, f.tag)
		binary.Write(&out, order, f.kind)
		binary.Write(&out, order, f.count)
		var v [4]byte
		copy(v[:], f.data)
		out.Write(v[:])
	}
	binary.Write(&out, order, uint32(0)) // no next IFD
	overflow.WriteTo(&out)

	if _, err := out.WriteTo(w); err != nil {
		return err
	}
	_, err := w.Write(pixels)
	return err
}

func flattenRGBA(m image.Image) []byte {
	b := m.Bounds()
	if rgba, ok := m.(*image.RGBA); ok && rgba.Stride == 4*b.Dx() && b.Min == (image.Point{}) {
		return rgba.Pix
	}
	buf := make([]byte, 0, 4*b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, a := m.At(x, y).RGBA()
			buf = append(buf, uint8(r>>8), uint8(g>>8), uint8(bb>>8), uint8(a>>8))
		}
	}
	return buf
}

func u16(v uint16) []byte {
	b := make([]byte, 2)
	order.PutUint16(b, v)
	return b
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return b
}

func u16s(vs ...uint16) []byte {
	b := make([]byte, 2*len(vs))
	for i, v := range vs {
		order.PutUint16(b[2*i:], v)
	}
	return b
}

func doubles(vs ...float64) []byte {
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		order.PutUint64(b[8*i:], math.Float64bits(v))
	}
	return b
}

func rational(num, den uint32) []byte {
	b := make([]byte, 8)
	order.PutUint32(b[:4], num)
	order.PutUint32(b[4:], den)
	return b
}
