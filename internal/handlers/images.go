package handlers

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"strconv"

	"image-viewer/internal/filesystem"
	"image-viewer/internal/indexer"
	"image-viewer/internal/logging"
	"image-viewer/internal/media"

	"github.com/gorilla/mux"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// ImageListResponse is one page of the ordered listing.
type ImageListResponse struct {
	Items      []indexer.ImageRecord `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	TotalPages int                   `json:"totalPages"`
	Category   indexer.Category      `json:"category,omitempty"`
}

// ImageDetail is a record plus its position in the current listing.
type ImageDetail struct {
	indexer.ImageRecord
	Previous   *indexer.ImageRecord   `json:"previous"`
	Next       *indexer.ImageRecord   `json:"next"`
	Dimensions *media.ImageDimensions `json:"dimensions,omitempty"`
}

// listOptions reads category, glob, dir and recursive from the query
// string. The configured default category applies when none is given;
// "all" asks for every category explicitly.
func (h *Handlers) listOptions(r *http.Request) (indexer.ListOptions, error) {
	q := r.URL.Query()

	opts := indexer.ListOptions{
		Category:  h.defaultCategory,
		Glob:      q.Get("glob"),
		Dir:       q.Get("dir"),
		Recursive: q.Get("recursive") == "true",
	}

	switch raw := q.Get("category"); raw {
	case "":
	case "all":
		opts.Category = ""
	default:
		category, ok := indexer.ParseCategory(raw)
		if !ok {
			return opts, errors.New("unknown category: " + raw)
		}
		opts.Category = category
	}

	return opts, nil
}

func positiveInt(raw string, fallback int) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return fallback
}

// ListImages returns a page of the ordered listing
func (h *Handlers) ListImages(w http.ResponseWriter, r *http.Request) {
	opts, err := h.listOptions(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.index.Query(opts)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	page := positiveInt(r.URL.Query().Get("page"), 1)
	pageSize := min(positiveInt(r.URL.Query().Get("pageSize"), defaultPageSize), maxPageSize)

	total := len(records)
	totalPages := (total + pageSize - 1) / pageSize
	start := total
	if page-1 < totalPages {
		start = (page - 1) * pageSize
	}
	end := min(start+pageSize, total)

	logging.Debug("ListImages: category=%q glob=%q dir=%q page=%d -> %d of %d",
		opts.Category, opts.Glob, opts.Dir, page, end-start, total)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ImageListResponse{
		Items:      records[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Category:   opts.Category,
	})
}

// GetCategories returns every category the viewer knows
func (h *Handlers) GetCategories(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.index.Categories())
}

// GetDirectories lists sub-directories of ?path= that contain images
func (h *Handlers) GetDirectories(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.index.Directories(r.URL.Query().Get("path")))
}

// GetImage returns one record with its neighbors in the listing selected
// by the query string.
func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}

	opts, err := h.listOptions(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	neighbors, err := h.index.NeighborsIn(rec.RelativePath, opts)
	switch {
	case errors.Is(err, indexer.ErrNotFound):
		writeJSONError(w, "image is not part of the selected listing", http.StatusNotFound)
		return
	case err != nil:
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	detail := ImageDetail{
		ImageRecord: rec,
		Previous:    neighbors.Previous,
		Next:        neighbors.Next,
	}

	dims, err := media.GetImageDimensions(rec.AbsolutePath)
	if err != nil {
		logging.Debug("GetImage: no dimensions for %s: %v", rec.RelativePath, err)
	} else {
		detail.Dimensions = dims
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, detail)
}

// GetMetadata returns the PNG text chunks of an indexed image as an ordered
// JSON object, or null when the file is not a PNG.
func (h *Handlers) GetMetadata(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}

	md, err := media.ExtractMetadata(rec.AbsolutePath)
	switch {
	case errors.Is(err, media.ErrMalformedPNG):
		logging.Warn("GetMetadata: %s: %v", rec.RelativePath, err)
		writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case errors.Is(err, os.ErrNotExist):
		writeJSONError(w, "image not found", http.StatusNotFound)
		return
	case err != nil:
		logging.Error("GetMetadata: %s: %v", rec.RelativePath, err)
		writeJSONError(w, "failed to read metadata", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, md)
}

// GetFile serves the bytes of an indexed image
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, false)
}

// DownloadFile serves an indexed image as an attachment
func (h *Handlers) DownloadFile(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, true)
}

func (h *Handlers) serveFile(w http.ResponseWriter, r *http.Request, attachment bool) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}

	f, err := filesystem.OpenWithRetry(rec.AbsolutePath, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONError(w, "image not found", http.StatusNotFound)
			return
		}
		logging.Error("serveFile: open %s: %v", rec.RelativePath, err)
		writeJSONError(w, "failed to open image", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		logging.Error("serveFile: stat %s: %v", rec.RelativePath, err)
		writeJSONError(w, "failed to read image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", rec.MimeType)
	if attachment {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rec.Name}))
	} else {
		w.Header().Set("Cache-Control", "private, max-age=60")
	}

	http.ServeContent(w, r, rec.Name, info.ModTime(), f)
}

// TriggerResync asks the index consumer to reconcile with the filesystem
func (h *Handlers) TriggerResync(w http.ResponseWriter, _ *http.Request) {
	if !h.index.RequestResync() {
		writeJSONStatus(w, http.StatusAccepted, "already_pending", "A resync is already scheduled")
		return
	}
	writeJSONStatus(w, http.StatusAccepted, "scheduled", "Resync scheduled")
}

// lookup resolves the {path} route variable through the index, writing a
// 404 when it is not indexed.
func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (indexer.ImageRecord, bool) {
	relPath := mux.Vars(r)["path"]
	if relPath == "" {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return indexer.ImageRecord{}, false
	}

	rec, err := h.index.Get(relPath)
	if err != nil {
		writeJSONError(w, "image not found", http.StatusNotFound)
		return indexer.ImageRecord{}, false
	}
	return rec, true
}
