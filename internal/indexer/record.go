package indexer

import (
	"os"
	"path"
	"strings"
	"time"

	"image-viewer/internal/mediatypes"

	"github.com/djherbis/times"
)

// Category is the classification of an indexed image.
type Category string

const (
	// CategoryImage is a single generated image.
	CategoryImage Category = "image"
	// CategoryGrid is a preview grid combining several outputs.
	CategoryGrid Category = "grid"
)

// gridMarker is matched case-sensitively against the file name.
const gridMarker = "grid"

// ParseCategory returns the category with the given name. The empty string
// is not a category; callers use it to mean "no filter".
func ParseCategory(name string) (Category, bool) {
	switch Category(name) {
	case CategoryImage, CategoryGrid:
		return Category(name), true
	default:
		return "", false
	}
}

// Classify derives the category from a file name. Only the base name is
// considered, so a directory called "grids" does not turn its contents into
// grids.
func Classify(name string) Category {
	if strings.Contains(path.Base(name), gridMarker) {
		return CategoryGrid
	}
	return CategoryImage
}

// ImageRecord describes one indexed file. Records are plain values: every
// record handed out by the index is a copy.
type ImageRecord struct {
	Name         string            `json:"name"`
	RelativePath string            `json:"path"`
	AbsolutePath string            `json:"-"`
	Category     Category          `json:"category"`
	CreatedAt    time.Time         `json:"createdAt"`
	ModifiedAt   time.Time         `json:"modifiedAt"`
	Size         int64             `json:"size"`
	Format       mediatypes.Format `json:"format"`
	MimeType     string            `json:"mimeType"`
}

// Dir returns the slash-separated directory of the record, "." for the root.
func (r ImageRecord) Dir() string {
	return path.Dir(r.RelativePath)
}

func newRecord(relPath, absPath string, info os.FileInfo, format mediatypes.Format) ImageRecord {
	return ImageRecord{
		Name:         path.Base(relPath),
		RelativePath: relPath,
		AbsolutePath: absPath,
		Category:     Classify(relPath),
		CreatedAt:    createdAt(info),
		ModifiedAt:   info.ModTime(),
		Size:         info.Size(),
		Format:       format,
		MimeType:     mediatypes.GetMimeType(format),
	}
}

// createdAt prefers the birth time, then the inode change time, then mtime.
func createdAt(info os.FileInfo) time.Time {
	ts := times.Get(info)
	switch {
	case ts.HasBirthTime():
		return ts.BirthTime()
	case ts.HasChangeTime():
		return ts.ChangeTime()
	default:
		return ts.ModTime()
	}
}

// before is the index order: newest first, then by path.
func before(a, b ImageRecord) bool {
	if !a.ModifiedAt.Equal(b.ModifiedAt) {
		return a.ModifiedAt.After(b.ModifiedAt)
	}
	return a.RelativePath < b.RelativePath
}

// unchanged reports whether two records for the same path describe the same
// file state as far as the index can tell.
func unchanged(a, b ImageRecord) bool {
	return a.ModifiedAt.Equal(b.ModifiedAt) && a.Size == b.Size && a.Format == b.Format
}
