package indexer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrBadPattern is returned by Query for an invalid glob.
var ErrBadPattern = errors.New("invalid glob pattern")

// ListOptions narrows a listing. The zero value selects everything.
type ListOptions struct {
	// Category keeps only records of this category; empty keeps all.
	Category Category
	// Glob is a doublestar pattern matched against the relative path,
	// e.g. "**/grid_*.png".
	Glob string
	// Dir keeps only records inside this directory ("." is the root).
	// Empty disables the directory filter.
	Dir string
	// Recursive extends Dir to all of its sub-directories.
	Recursive bool
}

// Neighbors holds the records before and after a selection. A nil field
// means the selection is at that end of the list.
type Neighbors struct {
	Previous *ImageRecord `json:"previous"`
	Next     *ImageRecord `json:"next"`
}

// DirectoryEntry is a sub-directory that contains indexed images.
type DirectoryEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// Categories returns every category, whatever the index holds.
func (idx *Index) Categories() []Category {
	return []Category{CategoryGrid, CategoryImage}
}

// List returns a snapshot of the records, newest first, ties broken by
// relative path. An empty category returns all records.
func (idx *Index) List(category Category) []ImageRecord {
	records, _ := idx.Query(ListOptions{Category: category})
	return records
}

// Query returns the records matching opts in index order.
func (idx *Index) Query(opts ListOptions) ([]ImageRecord, error) {
	match, err := opts.matcher()
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]ImageRecord, 0, len(idx.order))
	for _, key := range idx.order {
		rec := idx.records[key]
		if match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// matcher compiles the options into a predicate.
func (opts ListOptions) matcher() (func(ImageRecord) bool, error) {
	if opts.Category != "" {
		if _, ok := ParseCategory(string(opts.Category)); !ok {
			return nil, fmt.Errorf("unknown category %q", opts.Category)
		}
	}
	if opts.Glob != "" && !doublestar.ValidatePattern(opts.Glob) {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, opts.Glob)
	}

	dir := ""
	if opts.Dir != "" {
		dir = normalizeKey(opts.Dir)
	}

	return func(rec ImageRecord) bool {
		if opts.Category != "" && rec.Category != opts.Category {
			return false
		}
		if opts.Dir != "" && !inDir(rec.Dir(), dir, opts.Recursive) {
			return false
		}
		if opts.Glob != "" {
			// The pattern was validated above, so the error is always nil.
			ok, _ := doublestar.Match(opts.Glob, rec.RelativePath)
			return ok
		}
		return true
	}, nil
}

// inDir reports whether a record whose parent directory is parent lies in
// dir, where "" is the root.
func inDir(parent, dir string, recursive bool) bool {
	if parent == "." {
		parent = ""
	}
	if parent == dir {
		return true
	}
	if !recursive {
		return false
	}
	return dir == "" || strings.HasPrefix(parent, dir+"/")
}

// Neighbors returns the records adjacent to relPath in List(category).
func (idx *Index) Neighbors(relPath string, category Category) (Neighbors, error) {
	return idx.NeighborsIn(relPath, ListOptions{Category: category})
}

// NeighborsIn returns the records adjacent to relPath in the listing
// selected by opts. ErrNotFound means the selection is not part of that
// listing and should be cleared.
func (idx *Index) NeighborsIn(relPath string, opts ListOptions) (Neighbors, error) {
	key := normalizeKey(relPath)

	records, err := idx.Query(opts)
	if err != nil {
		return Neighbors{}, err
	}

	for i := range records {
		if records[i].RelativePath != key {
			continue
		}
		var n Neighbors
		if i > 0 {
			prev := records[i-1]
			n.Previous = &prev
		}
		if i < len(records)-1 {
			next := records[i+1]
			n.Next = &next
		}
		return n, nil
	}

	return Neighbors{}, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Directories lists the immediate sub-directories of dir that contain
// indexed images at any depth, sorted by name. Count is the number of
// images below each one.
func (idx *Index) Directories(dir string) []DirectoryEntry {
	base := normalizeKey(dir)
	prefix := ""
	if base != "" {
		prefix = base + "/"
	}

	idx.mu.RLock()
	counts := make(map[string]int)
	for key := range idx.records {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		child, _, nested := strings.Cut(rest, "/")
		if nested {
			counts[child]++
		}
	}
	idx.mu.RUnlock()

	entries := make([]DirectoryEntry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, DirectoryEntry{
			Name:  name,
			Path:  prefix + name,
			Count: count,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}
