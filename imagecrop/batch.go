package imagecrop

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
)

// ErrSizeMismatch is returned for a batch item whose dimensions differ from
// the reference size while cropping in absolute mode.
var ErrSizeMismatch = errors.New("image size differs from reference size")

// Mode selects how one region is applied across images of differing sizes.
type Mode string

const (
	// ModeAbsolute applies the region verbatim. Items whose dimensions
	// differ from the reference size are skipped with ErrSizeMismatch.
	ModeAbsolute Mode = "absolute"
	// ModeProportional rescales the region for each item by the ratio of
	// its size to the reference size.
	ModeProportional Mode = "proportional"
)

// Item is one entry in a batch crop request.
type Item struct {
	// Name identifies the item in results, typically the file base name.
	Name string
	// Image is the decoded source image.
	Image image.Image
}

// ItemResult is the per-item outcome of a batch crop. Exactly one of Image
// and Err is set.
type ItemResult struct {
	Name  string
	Image *image.NRGBA
	Err   error
}

// BatchCrop applies one region to every item. The region's coordinates are
// interpreted against refSize, the dimensions of the image the region was
// selected on. Items fail individually; one bad image never aborts the rest.
func BatchCrop(items []Item, region Region, refSize image.Point, mode Mode) []ItemResult {
	results := make([]ItemResult, 0, len(items))
	for _, item := range items {
		results = append(results, cropItem(item, region, refSize, mode))
	}
	return results
}

func cropItem(item Item, region Region, refSize image.Point, mode Mode) ItemResult {
	res := ItemResult{Name: item.Name}
	if item.Image == nil {
		res.Err = fmt.Errorf("%w: nil image", ErrUnsupportedFormat)
		return res
	}

	size := item.Image.Bounds().Size()
	r := region
	switch mode {
	case ModeProportional:
		if size != refSize {
			r = region.scale(refSize, size)
		}
	default: // absolute
		if size != refSize {
			res.Err = fmt.Errorf("%w: %dx%d, reference %dx%d",
				ErrSizeMismatch, size.X, size.Y, refSize.X, refSize.Y)
			return res
		}
	}

	res.Image, res.Err = Crop(item.Image, r)
	return res
}

// OutputName returns a path in dir for saving a cropped copy of filename.
// The base name gets a "_cropped" suffix; when that path already exists a
// numeric suffix is appended until a free name is found.
func OutputName(dir, filename string) string {
	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filepath.Base(filename), ext)

	candidate := filepath.Join(dir, fmt.Sprintf("%s_cropped%s", name, ext))
	for counter := 1; ; counter++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_cropped_%d%s", name, counter, ext))
	}
}
