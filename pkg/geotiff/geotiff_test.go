package geotiff

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"testing"

	"golang.org/x/image/tiff"
)

func encodeSample(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.SetRGBA(2, 3, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	err := Encode(&buf, img, WebMercator{
		OriginX:        261848.16,
		OriginY:        6250566.72,
		MetersPerPixel: 38.2185,
	})
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestEncodeDecodableTIFF(t *testing.T) {
	data := encodeSample(t)

	if data[0] != 'I' || data[1] != 'I' || data[2] != 0x2A {
		t.Fatal("missing little-endian TIFF header")
	}

	decoded, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("standard TIFF decoder rejected the output: %v", err)
	}
	if decoded.Bounds().Dx() != 8 || decoded.Bounds().Dy() != 6 {
		t.Errorf("decoded size %v, want 8x6", decoded.Bounds())
	}
	r, _, _, a := decoded.At(2, 3).RGBA()
	if r>>8 != 255 || a>>8 != 255 {
		t.Errorf("marked pixel lost: r=%d a=%d", r>>8, a>>8)
	}
}

// ifdTags parses the single IFD and returns tag id -> (type, count, value field offset).
func ifdTags(t *testing.T, data []byte) map[uint16][]byte {
	t.Helper()
	le := binary.LittleEndian
	ifd := le.Uint32(data[4:8])
	count := int(le.Uint16(data[ifd : ifd+2]))
	tags := make(map[uint16][]byte, count)
	for i := 0; i < count; i++ {
		entry := data[int(ifd)+2+12*i:]
		tags[le.Uint16(entry[0:2])] = entry[:12]
	}
	return tags
}

func TestEncodeGeoTags(t *testing.T) {
	data := encodeSample(t)
	le := binary.LittleEndian
	tags := ifdTags(t, data)

	for _, id := range []uint16{tagGeoKeyDirectory, tagModelPixelScale, tagModelTiepoint} {
		if _, ok := tags[id]; !ok {
			t.Fatalf("tag %d missing from IFD", id)
		}
	}

	// GeoKeyDirectory lives out of line: 16 shorts.
	entry := tags[tagGeoKeyDirectory]
	if got := le.Uint32(entry[4:8]); got != 16 {
		t.Errorf("GeoKeyDirectory count = %d, want 16", got)
	}
	off := le.Uint32(entry[8:12])
	keys := make([]uint16, 16)
	for i := range keys {
		keys[i] = le.Uint16(data[int(off)+2*i:])
	}
	found3857 := false
	for i := 4; i+3 < len(keys); i += 4 {
		if keys[i] == 3072 && keys[i+3] == 3857 {
			found3857 = true
		}
	}
	if !found3857 {
		t.Errorf("GeoKeyDirectory %v does not declare EPSG:3857", keys)
	}

	// ModelPixelScale: three doubles, x and y scale equal.
	entry = tags[tagModelPixelScale]
	off = le.Uint32(entry[8:12])
	sx := math.Float64frombits(le.Uint64(data[off:]))
	sy := math.Float64frombits(le.Uint64(data[off+8:]))
	if math.Abs(sx-38.2185) > 1e-9 || sx != sy {
		t.Errorf("pixel scale = (%f, %f)", sx, sy)
	}

	// ModelTiepoint: raster (0,0,0) tied to the configured origin.
	entry = tags[tagModelTiepoint]
	off = le.Uint32(entry[8:12])
	originX := math.Float64frombits(le.Uint64(data[off+24:]))
	originY := math.Float64frombits(le.Uint64(data[off+32:]))
	if math.Abs(originX-261848.16) > 1e-6 || math.Abs(originY-6250566.72) > 1e-6 {
		t.Errorf("tiepoint origin = (%f, %f)", originX, originY)
	}
}

func TestEncodeOptionalAsciiTags(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	err := Encode(&buf, img, WebMercator{
		MetersPerPixel: 1,
		Description:    "combined export, zoom 12.00",
		DateTime:       "2024:05:17 09:30:45",
	})
	if err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	tags := ifdTags(t, data)
	if _, ok := tags[tagImageDescription]; !ok {
		t.Error("ImageDescription tag missing")
	}
	if _, ok := tags[tagDateTime]; !ok {
		t.Error("DateTime tag missing")
	}
	if !bytes.Contains(data, []byte("combined export")) {
		t.Error("description text not written")
	}
}
