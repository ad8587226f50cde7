package testsupport

import (
	"bytes"
	"encoding/binary"
	"testing"
)

const exifDateTimeTag = 0x0132

// JPEGWithCaptureTime returns a minimal JPEG whose EXIF IFD0 carries the given
// DateTime value (normally "YYYY:MM:DD hh:mm:ss").
func JPEGWithCaptureTime(t testing.TB, dateTime string) []byte {
	t.Helper()

	value := append([]byte(dateTime), 0)
	var tiff bytes.Buffer
	order := binary.LittleEndian
	tiff.WriteString("II")
	_ = binary.Write(&tiff, order, uint16(42))
	_ = binary.Write(&tiff, order, uint32(8))
	// IFD0: one entry, then the next-IFD offset, then the string value.
	_ = binary.Write(&tiff, order, uint16(1))
	_ = binary.Write(&tiff, order, uint16(exifDateTimeTag))
	_ = binary.Write(&tiff, order, uint16(2))
	_ = binary.Write(&tiff, order, uint32(len(value)))
	if len(value) <= 4 {
		padded := make([]byte, 4)
		copy(padded, value)
		tiff.Write(padded)
		_ = binary.Write(&tiff, order, uint32(0))
	} else {
		_ = binary.Write(&tiff, order, uint32(8+2+12+4))
		_ = binary.Write(&tiff, order, uint32(0))
		tiff.Write(value)
	}

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	var out bytes.Buffer
	out.Write([]byte{0xFF, 0xD8})
	out.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(jpegBody())
	return out.Bytes()
}

// JPEGWithoutExif returns a minimal JPEG with no metadata segments.
func JPEGWithoutExif() []byte {
	return append([]byte{0xFF, 0xD8}, jpegBody()...)
}

// jpegBody is a comment segment followed by the end-of-image marker; enough for
// content sniffing and metadata parsers, not for pixel decoding.
func jpegBody() []byte {
	comment := []byte("claimcheck fixture")
	var out bytes.Buffer
	out.Write([]byte{0xFF, 0xFE})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(comment)+2))
	out.Write(comment)
	out.Write([]byte{0xFF, 0xD9})
	return out.Bytes()
}
