// Package exif provides a source.Source implementation that reads image
// metadata and GPS coordinates from local image files.
package exif

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"os"
	"path/filepath"
	"strings"

	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"osint/pkg/domain"
	"osint/pkg/serrors"
	"osint/pkg/source"
)

// Reader extracts metadata from image files. Failures on one image are
// recorded in that image's result and never fail the whole lookup.
type Reader struct{}

// Module implements source.Source.
func (r *Reader) Module() domain.Module { return domain.ModuleExifMetadata }

// Lookup analyzes every path of an images target.
func (r *Reader) Lookup(ctx context.Context, target domain.Target) (domain.Payload, error) {
	if target.Kind != domain.TargetImages {
		return nil, serrors.With(serrors.ErrBadRequest, "expected %s target, got %q", domain.TargetImages, target.Kind)
	}
	if len(target.Values) == 0 {
		return nil, serrors.With(serrors.ErrBadRequest, "no images given")
	}

	out := &domain.ExifPayload{Images: make([]domain.ImageResult, 0, len(target.Values))}
	for _, p := range target.Values {
		if err := ctx.Err(); err != nil {
			return nil, serrors.Wrap(serrors.ErrTimeout, err, "image analysis interrupted")
		}
		out.Images = append(out.Images, Analyze(p))
	}

	return out, nil
}

// Analyze reads the metadata of a single image file.
func Analyze(path string) domain.ImageResult {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	res := domain.ImageResult{File: path}

	meta, err := readMetadata(path)
	if err != nil {
		res.Status = domain.ImageStatusError
		res.Error = err.Error()

		return res
	}
	res.Status = domain.ImageStatusSuccess
	res.Metadata = meta

	return res
}

func readMetadata(path string) (*domain.ImageMetadata, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.New("file not found") //nolint: err113
	}
	if err != nil {
		return nil, fmt.Errorf("could not open image: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not stat image: %w", err)
	}
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("could not process image: %w", err)
	}

	meta := &domain.ImageMetadata{
		FileInfo: domain.FileInfo{
			Filename:      filepath.Base(path),
			Format:        strings.ToUpper(format),
			SizePixels:    fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
			FileSizeBytes: st.Size(),
		},
		Exif: map[string]string{},
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("could not rewind image: %w", err)
	}
	x, err := goexif.Decode(f)
	if err != nil {
		// images without EXIF data are still a successful read
		return meta, nil //nolint: nilerr
	}

	_ = x.Walk(walker(meta.Exif))
	if lat, lon, err := x.LatLong(); err == nil {
		meta.GPS = &domain.GPSInfo{Latitude: &lat, Longitude: &lon}
	}

	return meta, nil
}

// walker collects non-GPS tags as strings.
type walker map[string]string

func (w walker) Walk(name goexif.FieldName, tag *tiff.Tag) error {
	n := string(name)
	if strings.HasPrefix(n, "GPS") {
		return nil
	}
	w[n] = strings.Trim(tag.String(), `"`)

	return nil
}

var _ source.Source = (*Reader)(nil)

// New constructs a Reader.
func New() *Reader {
	return &Reader{}
}
