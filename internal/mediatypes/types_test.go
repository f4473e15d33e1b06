package mediatypes

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gabriel-vasile/mimetype"
)

func TestIsImageExtension(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "PNG", path: "out/a.png", want: true},
		{name: "upper case PNG", path: "A.PNG", want: true},
		{name: "JPG", path: "b.jpg", want: true},
		{name: "JPEG", path: "b.jpeg", want: true},
		{name: "WebP", path: "c.webp", want: true},
		{name: "TIFF short", path: "d.tif", want: true},
		{name: "text file", path: "notes.txt", want: false},
		{name: "PNG sidecar", path: "a.png.json", want: false},
		{name: "no extension", path: "grid", want: false},
		{name: "empty", path: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsImageExtension(tt.path); got != tt.want {
				t.Errorf("IsImageExtension(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatPNG, "image/png"},
		{FormatJPEG, "image/jpeg"},
		{FormatGIF, "image/gif"},
		{FormatWebP, "image/webp"},
		{FormatUnknown, "application/octet-stream"},
		{Format("svg"), "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if got := GetMimeType(tt.format); got != tt.want {
				t.Errorf("GetMimeType(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestExtensionsHaveMimeTypes(t *testing.T) {
	for ext, format := range ImageExtensions {
		if _, ok := MimeTypes[format]; !ok {
			t.Errorf("extension %s maps to %q which has no MIME type", ext, format)
		}
	}
}

func encodeImage(t *testing.T, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	dir := t.TempDir()

	pngData := encodeImage(t, func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) })
	jpegData := encodeImage(t, func(b *bytes.Buffer, img image.Image) error { return jpeg.Encode(b, img, nil) })
	gifData := encodeImage(t, func(b *bytes.Buffer, img image.Image) error { return gif.Encode(b, img, nil) })

	tests := []struct {
		name    string
		file    string
		content []byte
		want    Format
	}{
		{name: "PNG", file: "a.png", content: pngData, want: FormatPNG},
		{name: "JPEG", file: "b.jpg", content: jpegData, want: FormatJPEG},
		{name: "GIF", file: "c.gif", content: gifData, want: FormatGIF},
		{name: "JPEG under png name", file: "lies.png", content: jpegData, want: FormatJPEG},
		{name: "text under png name", file: "text.png", content: []byte("hello world\n"), want: FormatUnknown},
		{name: "empty file", file: "empty.png", content: nil, want: FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, tt.content, 0o644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}

			got, err := Sniff(path)
			if err != nil {
				t.Fatalf("Sniff() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Sniff() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSniff_MissingFile(t *testing.T) {
	_, err := Sniff(filepath.Join(t.TempDir(), "missing.png"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestFormatFromMIME(t *testing.T) {
	tests := []struct {
		mime string
		want Format
	}{
		{"image/png", FormatPNG},
		{"image/vnd.mozilla.apng", FormatPNG},
		{"image/jpeg", FormatJPEG},
		{"image/webp", FormatWebP},
		{"image/tiff", FormatTIFF},
		{"application/pdf", FormatUnknown},
		{"text/plain", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			m := mimetype.Lookup(tt.mime)
			if m == nil {
				t.Fatalf("mimetype has no entry for %s", tt.mime)
			}
			if got := formatFromMIME(m); got != tt.want {
				t.Errorf("formatFromMIME(%s) = %q, want %q", tt.mime, got, tt.want)
			}
		})
	}
}

func TestSniff_BMP(t *testing.T) {
	// 1x1 24-bit bitmap: file header, BITMAPINFOHEADER and one padded pixel row.
	bmp := []byte{
		'B', 'M', 0x3a, 0, 0, 0, 0, 0, 0, 0, 0x36, 0, 0, 0,
		0x28, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 24, 0,
		0, 0, 0, 0, 4, 0, 0, 0, 0x13, 0x0b, 0, 0, 0x13, 0x0b, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0xff, 0, 0, 0,
	}
	path := filepath.Join(t.TempDir(), "pixel.bmp")
	if err := os.WriteFile(path, bmp, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := Sniff(path)
	if err != nil {
		t.Fatalf("Sniff() error = %v", err)
	}
	if got != FormatBMP {
		t.Errorf("Sniff() = %q, want %q", got, FormatBMP)
	}
}
