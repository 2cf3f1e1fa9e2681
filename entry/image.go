package entry

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	_ "image/gif" // register decoder for DecodeConfig
	"image/jpeg"
	"image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"  // register decoder for DecodeConfig
	_ "golang.org/x/image/tiff" // register decoder for DecodeConfig
	_ "golang.org/x/image/webp" // register decoder for DecodeConfig
)

// ImageInfo describes a structurally valid image.
type ImageInfo struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

var (
	errTruncated  = errors.New("truncated")
	pngSignature  = []byte("\x89PNG\r\n\x1a\n")
	jpegSOI       = []byte{0xFF, 0xD8}
	errNoEndOfImg = errors.New("missing end-of-image marker")
)

// ValidateImage checks that payload is a decodable image. For JPEG and PNG
// the header is decoded and the container structure walked end to end, which
// detects truncation and corrupt chunks without decoding pixel data. GIF,
// BMP, TIFF and WebP are accepted when their header decodes. The format is
// taken from the content, not the entry name.
func ValidateImage(payload []byte) (ImageInfo, error) {
	if len(payload) == 0 {
		return ImageInfo{}, errors.New("empty image")
	}

	mtype := mimetype.Detect(payload)
	switch {
	case hasType(mtype, "image/jpeg"):
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(payload))
		if err != nil {
			return ImageInfo{}, fmt.Errorf("jpeg header: %w", err)
		}
		if err := walkJPEG(payload); err != nil {
			return ImageInfo{}, fmt.Errorf("jpeg: %w", err)
		}
		return info("jpeg", cfg)
	case hasType(mtype, "image/png"):
		cfg, err := png.DecodeConfig(bytes.NewReader(payload))
		if err != nil {
			return ImageInfo{}, fmt.Errorf("png header: %w", err)
		}
		if err := walkPNG(payload); err != nil {
			return ImageInfo{}, fmt.Errorf("png: %w", err)
		}
		return info("png", cfg)
	default:
		cfg, format, err := image.DecodeConfig(bytes.NewReader(payload))
		if err != nil {
			return ImageInfo{}, fmt.Errorf("unsupported image format %s: %w", mtype.String(), err)
		}
		return info(format, cfg)
	}
}

func hasType(m *mimetype.MIME, want string) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}

func info(format string, cfg image.Config) (ImageInfo, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("%s: invalid dimensions %dx%d", format, cfg.Width, cfg.Height)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// JPEG markers.
const (
	markerTEM  = 0x01
	markerRST0 = 0xD0
	markerRST7 = 0xD7
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
)

// walkJPEG follows the marker segments from SOI, skips each entropy-coded
// scan, and requires an EOI after at least one scan. Bytes after EOI are
// ignored.
func walkJPEG(b []byte) error {
	if !bytes.HasPrefix(b, jpegSOI) {
		return errors.New("missing start-of-image marker")
	}

	scans := 0
	pos := len(jpegSOI)
	for {
		if pos >= len(b) {
			return errNoEndOfImg
		}
		if b[pos] != 0xFF {
			return fmt.Errorf("expected marker at offset %d, found 0x%02x", pos, b[pos])
		}
		// Any number of 0xFF fill bytes may precede a marker.
		for pos < len(b) && b[pos] == 0xFF {
			pos++
		}
		if pos >= len(b) {
			return errNoEndOfImg
		}
		marker := b[pos]
		pos++

		switch {
		case marker == markerEOI:
			if scans == 0 {
				return errors.New("end-of-image before any scan")
			}
			return nil
		case marker == markerSOI:
			return fmt.Errorf("unexpected start-of-image marker at offset %d", pos-2)
		case marker == markerTEM, marker >= markerRST0 && marker <= markerRST7:
			continue
		}

		if pos+2 > len(b) {
			return fmt.Errorf("segment 0x%02x: %w", marker, errTruncated)
		}
		length := int(binary.BigEndian.Uint16(b[pos:]))
		if length < 2 {
			return fmt.Errorf("segment 0x%02x: invalid length %d", marker, length)
		}
		if pos+length > len(b) {
			return fmt.Errorf("segment 0x%02x at offset %d: %w", marker, pos-2, errTruncated)
		}
		pos += length

		if marker == markerSOS {
			scans++
			next, err := skipScan(b, pos)
			if err != nil {
				return err
			}
			pos = next
		}
	}
}

// skipScan returns the offset of the first marker after entropy-coded data
// starting at pos. Stuffed 0xFF00 pairs and restart markers belong to the scan.
func skipScan(b []byte, pos int) (int, error) {
	for i := pos; i+1 < len(b); i++ {
		if b[i] != 0xFF {
			continue
		}
		next := b[i+1]
		if next == 0x00 || next == 0xFF || (next >= markerRST0 && next <= markerRST7) {
			continue
		}
		return i, nil
	}
	return 0, fmt.Errorf("scan data: %w", errNoEndOfImg)
}

// walkPNG checks every chunk's bounds and CRC from IHDR through IEND.
// Bytes after IEND are ignored.
func walkPNG(b []byte) error {
	if !bytes.HasPrefix(b, pngSignature) {
		return errors.New("bad signature")
	}

	pos := len(pngSignature)
	seenData := false
	for first := true; ; first = false {
		if pos+8 > len(b) {
			return fmt.Errorf("chunk header at offset %d: %w", pos, errTruncated)
		}
		length := int(binary.BigEndian.Uint32(b[pos:]))
		typ := string(b[pos+4 : pos+8])
		end := pos + 8 + length + 4
		if length < 0 || end > len(b) || end < pos {
			return fmt.Errorf("chunk %s at offset %d: %w", typ, pos, errTruncated)
		}

		want := binary.BigEndian.Uint32(b[end-4:])
		if got := crc32.ChecksumIEEE(b[pos+4 : end-4]); got != want {
			return fmt.Errorf("chunk %s at offset %d: crc mismatch", typ, pos)
		}

		switch {
		case first && typ != "IHDR":
			return fmt.Errorf("first chunk is %s, want IHDR", typ)
		case typ == "IDAT":
			seenData = true
		case typ == "IEND":
			if !seenData {
				return errors.New("no IDAT chunk")
			}
			if length != 0 {
				return errors.New("IEND chunk has data")
			}
			return nil
		}
		pos = end
	}
}
