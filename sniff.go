package mediacrop

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind is the detected media kind of an input file.
type Kind string

const (
	// KindImage routes to the image crop engine.
	KindImage Kind = "image"
	// KindVideo routes to the video trim dispatcher.
	KindVideo Kind = "video"
	// KindUnknown means neither path applies.
	KindUnknown Kind = "unknown"
)

// imageExtensions mirrors the formats the crop engine decodes.
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".bmp": true, ".webp": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true,
	".avi": true, ".webm": true, ".m4v": true, ".mpg": true, ".mpeg": true,
}

// DetectKind determines the media kind of a file. Content sniffing runs
// first so a mislabeled file is not misrouted; the extension is the fallback
// when sniffing is inconclusive (unreadable file, opaque container).
func DetectKind(path string) Kind {
	if mtype, err := mimetype.DetectFile(path); err == nil {
		switch {
		case strings.HasPrefix(mtype.String(), "image/"):
			return KindImage
		case strings.HasPrefix(mtype.String(), "video/"):
			return KindVideo
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExtensions[ext]:
		return KindImage
	case videoExtensions[ext]:
		return KindVideo
	default:
		return KindUnknown
	}
}
