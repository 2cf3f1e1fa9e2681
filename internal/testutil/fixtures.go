package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/klauspost/compress/zip"
	"golang.org/x/image/bmp"
)

// ZipEntry is a named payload placed into a fixture archive.
type ZipEntry struct {
	Name    string
	Payload []byte
}

// BuildZip builds an in-memory ZIP archive holding entries in the given order.
// Names ending in "/" are written as directory entries.
func BuildZip(entries ...ZipEntry) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			panic(err)
		}
		if len(e.Payload) > 0 {
			if _, err := w.Write(e.Payload); err != nil {
				panic(err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 0x80, A: 0xff})
		}
	}
	return img
}

// PNG returns a well-formed w×h PNG.
func PNG(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// JPEG returns a well-formed w×h baseline JPEG.
func JPEG(w, h int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// GIF returns a well-formed w×h GIF.
func GIF(w, h int) []byte {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, testImage(w, h), nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// BMP returns a well-formed w×h BMP.
func BMP(w, h int) []byte {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, testImage(w, h)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
