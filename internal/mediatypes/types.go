package mediatypes

import (
	"fmt"
	"path/filepath"
	"strings"

	"image-viewer/internal/filesystem"
	"image-viewer/internal/logging"

	"github.com/gabriel-vasile/mimetype"
)

// Format identifies an image container detected from file content.
type Format string

const (
	// FormatUnknown means the content did not match any supported signature.
	FormatUnknown Format = ""
	// FormatPNG is a PNG image (including APNG).
	FormatPNG Format = "png"
	// FormatJPEG is a JPEG image.
	FormatJPEG Format = "jpeg"
	// FormatGIF is a GIF image.
	FormatGIF Format = "gif"
	// FormatWebP is a WebP image.
	FormatWebP Format = "webp"
	// FormatBMP is a Windows bitmap.
	FormatBMP Format = "bmp"
	// FormatTIFF is a TIFF image.
	FormatTIFF Format = "tiff"
)

// ImageExtensions maps lowercase file extensions to the format they usually hold.
// The extension only gates which filesystem events are considered; the format
// recorded for a file always comes from its content.
var ImageExtensions = map[string]Format{
	".png":  FormatPNG,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".gif":  FormatGIF,
	".webp": FormatWebP,
	".bmp":  FormatBMP,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
}

// MimeTypes maps formats to their MIME types.
var MimeTypes = map[Format]string{
	FormatPNG:  "image/png",
	FormatJPEG: "image/jpeg",
	FormatGIF:  "image/gif",
	FormatWebP: "image/webp",
	FormatBMP:  "image/bmp",
	FormatTIFF: "image/tiff",
}

// formatByMime is the reverse of MimeTypes, keyed by the strings mimetype reports.
var formatByMime = map[string]Format{
	"image/png":  FormatPNG,
	"image/jpeg": FormatJPEG,
	"image/gif":  FormatGIF,
	"image/webp": FormatWebP,
	"image/bmp":  FormatBMP,
	"image/tiff": FormatTIFF,
}

// IsImageExtension reports whether the path has a supported image extension.
// Matching is case-insensitive.
func IsImageExtension(path string) bool {
	_, ok := ImageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// GetMimeType returns the MIME type for a format, or
// "application/octet-stream" if the format is unknown.
func GetMimeType(format Format) string {
	if mime, ok := MimeTypes[format]; ok {
		return mime
	}
	return "application/octet-stream"
}

// formatFromMIME walks the detected type and its parents so that subtypes
// such as APNG resolve to their container format. Is also matches the
// aliases mimetype knows for a type, such as image/x-ms-bmp.
func formatFromMIME(mtype *mimetype.MIME) Format {
	for m := mtype; m != nil; m = m.Parent() {
		if format, ok := formatByMime[m.String()]; ok {
			return format
		}
		for mime, format := range formatByMime {
			if m.Is(mime) {
				return format
			}
		}
	}
	return FormatUnknown
}

// Sniff reads the leading bytes of the file and returns the detected image
// format. Non-image content yields FormatUnknown with a nil error; an error
// is returned only when the file cannot be opened or read.
func Sniff(path string) (Format, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return FormatUnknown, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close %s after sniffing: %v", path, err)
		}
	}()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return FormatUnknown, fmt.Errorf("detecting content type of %s: %w", path, err)
	}

	return formatFromMIME(mtype), nil
}
