// Package imagecrop extracts pixel regions from in-memory images. It is
// pure and synchronous: cropping never touches the filesystem or spawns a
// process, so image workflows keep working when the external video tool is
// absent.
package imagecrop

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// Static errors for crop operations.
var (
	// ErrRegionOutOfBounds is returned when the region does not lie fully
	// within the source image.
	ErrRegionOutOfBounds = errors.New("crop region out of image bounds")
	// ErrEmptyRegion is returned when the region has no area.
	ErrEmptyRegion = errors.New("crop region is empty")
	// ErrUnsupportedFormat is returned when the image color layout is not
	// 8-bit RGB/RGBA.
	ErrUnsupportedFormat = errors.New("unsupported image format: 8-bit RGB/RGBA required")
)

// Region is a crop rectangle in pixel coordinates relative to the top-left
// corner of the source image. All values are non-negative; width and height
// must be positive.
type Region struct {
	X      int `json:"x" validate:"gte=0"`
	Y      int `json:"y" validate:"gte=0"`
	Width  int `json:"width" validate:"gt=0"`
	Height int `json:"height" validate:"gt=0"`
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// fitsWithin reports whether the region lies fully inside an image of the
// given size.
func (r Region) fitsWithin(size image.Point) bool {
	return r.X >= 0 && r.Y >= 0 &&
		r.X+r.Width <= size.X && r.Y+r.Height <= size.Y
}

// scale maps the region onto an image of size target, treating its current
// coordinates as relative to an image of size ref. Used by proportional
// batch cropping.
func (r Region) scale(ref, target image.Point) Region {
	sx := float64(target.X) / float64(ref.X)
	sy := float64(target.Y) / float64(ref.Y)
	return Region{
		X:      int(float64(r.X) * sx),
		Y:      int(float64(r.Y) * sy),
		Width:  int(float64(r.Width) * sx),
		Height: int(float64(r.Height) * sy),
	}
}

// Crop extracts the region from img into a freshly allocated NRGBA buffer
// with bounds anchored at the origin. The source image is never modified and
// no partial buffer is produced on failure.
//
// Supported source layouts are 8-bit RGBA and 8-bit non-premultiplied RGBA
// (image.RGBA and image.NRGBA). Use Decode to normalize arbitrary encoded
// images into a supported layout first.
func Crop(img image.Image, r Region) (*image.NRGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrUnsupportedFormat)
	}
	switch img.(type) {
	case *image.NRGBA, *image.RGBA:
	default:
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedFormat, img)
	}

	if r.Empty() {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyRegion, r.Width, r.Height)
	}

	size := img.Bounds().Size()
	if !r.fitsWithin(size) {
		return nil, fmt.Errorf("%w: region (%d,%d) %dx%d, image %dx%d",
			ErrRegionOutOfBounds, r.X, r.Y, r.Width, r.Height, size.X, size.Y)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	src := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).Add(img.Bounds().Min)
	draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
	return dst, nil
}
