package exif_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"osint/pkg/domain"
	"osint/pkg/serrors"
	"osint/pkg/source/exif"
)

func smallImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	return img
}

// gpsTIFF builds a big-endian TIFF block with a single GPS IFD holding
// 40°25'0"N 3°42'0"W.
func gpsTIFF() []byte {
	var b bytes.Buffer
	be := binary.BigEndian
	u16 := func(v uint16) { _ = binary.Write(&b, be, v) }
	u32 := func(v uint32) { _ = binary.Write(&b, be, v) }
	entry := func(tag, typ uint16, count, value uint32) {
		u16(tag)
		u16(typ)
		u32(count)
		u32(value)
	}

	b.WriteString("MM")
	u16(42)
	u32(8)

	// IFD0 at 8: GPS pointer only
	u16(1)
	entry(0x8825, 4, 1, 26)
	u32(0)

	// GPS IFD at 26, rational data at 80 and 104
	u16(4)
	entry(0x0001, 2, 2, uint32('N')<<24)
	entry(0x0002, 5, 3, 80)
	entry(0x0003, 2, 2, uint32('W')<<24)
	entry(0x0004, 5, 3, 104)
	u32(0)

	for _, v := range []uint32{40, 1, 25, 1, 0, 1, 3, 1, 42, 1, 0, 1} {
		u32(v)
	}

	return b.Bytes()
}

func writeJPEGWithGPS(t *testing.T, path string) {
	t.Helper()

	var img bytes.Buffer
	require.NoError(t, jpeg.Encode(&img, smallImage(), nil))
	raw := img.Bytes()

	payload := append([]byte("Exif\x00\x00"), gpsTIFF()...)
	app1 := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(app1[2:], uint16(len(payload)+2))
	app1 = append(app1, payload...)

	out := append([]byte{}, raw[:2]...)
	out = append(out, app1...)
	out = append(out, raw[2:]...)
	require.NoError(t, os.WriteFile(path, out, 0o600))
}

func TestReader_Lookup(t *testing.T) {
	dir := t.TempDir()
	withGPS := filepath.Join(dir, "gps.jpg")
	writeJPEGWithGPS(t, withGPS)

	plain := filepath.Join(dir, "plain.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, smallImage()))
	require.NoError(t, os.WriteFile(plain, buf.Bytes(), 0o600))

	notImage := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("hello"), 0o600))

	missing := filepath.Join(dir, "missing.jpg")

	res, err := exif.New().Lookup(context.Background(), domain.Target{
		Kind:   domain.TargetImages,
		Values: []string{withGPS, plain, notImage, missing},
	})
	require.NoError(t, err)
	images := res.(*domain.ExifPayload).Images
	require.Len(t, images, 4)

	gps := images[0]
	require.Equal(t, domain.ImageStatusSuccess, gps.Status)
	require.Equal(t, withGPS, gps.File)
	require.Equal(t, "JPEG", gps.Metadata.FileInfo.Format)
	require.Equal(t, "4x3", gps.Metadata.FileInfo.SizePixels)
	require.NotNil(t, gps.Metadata.GPS)
	require.InDelta(t, 40.416666, *gps.Metadata.GPS.Latitude, 1e-4)
	require.InDelta(t, -3.7, *gps.Metadata.GPS.Longitude, 1e-4)

	noExif := images[1]
	require.Equal(t, domain.ImageStatusSuccess, noExif.Status)
	require.Equal(t, "plain.png", noExif.Metadata.FileInfo.Filename)
	require.Equal(t, "PNG", noExif.Metadata.FileInfo.Format)
	require.Equal(t, int64(buf.Len()), noExif.Metadata.FileInfo.FileSizeBytes)
	require.Nil(t, noExif.Metadata.GPS)
	require.Empty(t, noExif.Metadata.Exif)

	require.Equal(t, domain.ImageStatusError, images[2].Status)
	require.Contains(t, images[2].Error, "could not process image")
	require.Nil(t, images[2].Metadata)

	require.Equal(t, domain.ImageStatusError, images[3].Status)
	require.Equal(t, "file not found", images[3].Error)
}

func TestReader_Lookup_badTarget(t *testing.T) {
	_, err := exif.New().Lookup(context.Background(), domain.Target{Kind: domain.TargetImages})
	require.ErrorIs(t, err, serrors.ErrBadRequest)

	_, err = exif.New().Lookup(context.Background(), domain.Target{Kind: domain.TargetDomain, Value: "example.com"})
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}
