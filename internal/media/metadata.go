package media

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"time"
	"unicode/utf8"

	"image-viewer/internal/filesystem"
	"image-viewer/internal/logging"
	"image-viewer/internal/metrics"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/text/encoding/charmap"
)

// ErrMalformedPNG is returned when a file carries the PNG signature but its
// chunk stream cannot be parsed.
var ErrMalformedPNG = errors.New("malformed PNG")

// Metadata holds PNG text chunks keyed by keyword, in the order the keywords
// first appear in the file. It marshals to a JSON object with that order.
type Metadata = orderedmap.OrderedMap[string, string]

const (
	chunkTypeText = "tEXt"
	chunkTypeEnd  = "IEND"

	// maxChunkLength is the PNG limit of 2^31-1 bytes.
	maxChunkLength = 1<<31 - 1

	// maxTextChunkLength bounds the buffer allocated for a single tEXt chunk.
	maxTextChunkLength = 16 << 20
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// ExtractMetadata returns the tEXt key/value pairs of the PNG at path.
//
// A file whose content does not start with the PNG signature yields
// (nil, nil), regardless of its extension. A PNG with no text chunks yields an
// empty, non-nil map. Truncated files, bad lengths, CRC mismatches and tEXt
// chunks without a keyword separator return an error wrapping ErrMalformedPNG.
// When a keyword repeats, the last value wins and the first position is kept.
func ExtractMetadata(path string) (*Metadata, error) {
	start := time.Now()
	md, err := extractMetadata(path)
	metrics.MetadataExtractionDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrMalformedPNG):
		metrics.MetadataExtractionsTotal.WithLabelValues("malformed").Inc()
		logging.Debug("Metadata: %s is a malformed PNG: %v", path, err)
	case err != nil:
		metrics.MetadataExtractionsTotal.WithLabelValues("error").Inc()
	case md == nil:
		metrics.MetadataExtractionsTotal.WithLabelValues("not_png").Inc()
	default:
		metrics.MetadataExtractionsTotal.WithLabelValues("ok").Inc()
	}

	return md, err
}

func extractMetadata(path string) (*Metadata, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close %s: %v", path, err)
		}
	}()

	r := bufio.NewReader(file)

	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !bytes.Equal(sig, pngSignature) {
		return nil, nil
	}

	md, err := readTextChunks(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return md, nil
}

// readTextChunks consumes chunks up to and including IEND. Every chunk's CRC
// is verified, including the ones that are skipped.
func readTextChunks(r io.Reader) (*Metadata, error) {
	md := orderedmap.New[string, string]()
	header := make([]byte, 8)
	crcBuf := make([]byte, 4)

	for {
		if _, err := io.ReadFull(r, header); err != nil {
			return nil, truncated(err, "chunk header")
		}

		length := binary.BigEndian.Uint32(header[:4])
		chunkType := string(header[4:8])
		if length > maxChunkLength {
			return nil, fmt.Errorf("%w: chunk %q length %d exceeds limit", ErrMalformedPNG, chunkType, length)
		}

		crc := crc32.NewIEEE()
		crc.Write(header[4:8])

		if chunkType == chunkTypeText {
			if length > maxTextChunkLength {
				return nil, fmt.Errorf("%w: tEXt chunk of %d bytes is too large", ErrMalformedPNG, length)
			}
			data := make([]byte, length)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, truncated(err, "tEXt data")
			}
			crc.Write(data)

			key, value, ok := bytes.Cut(data, []byte{0})
			if !ok {
				return nil, fmt.Errorf("%w: tEXt chunk without keyword separator", ErrMalformedPNG)
			}
			// Verify before storing so a corrupt chunk never leaks into the result.
			if err := verifyCRC(r, crcBuf, crc.Sum32(), chunkType); err != nil {
				return nil, err
			}
			md.Set(decodeText(key), decodeText(value))
			continue
		}

		if _, err := io.CopyN(crc, r, int64(length)); err != nil {
			return nil, truncated(err, chunkType+" data")
		}
		if err := verifyCRC(r, crcBuf, crc.Sum32(), chunkType); err != nil {
			return nil, err
		}

		if chunkType == chunkTypeEnd {
			return md, nil
		}
	}
}

func verifyCRC(r io.Reader, buf []byte, want uint32, chunkType string) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		return truncated(err, chunkType+" CRC")
	}
	if got := binary.BigEndian.Uint32(buf); got != want {
		return fmt.Errorf("%w: CRC mismatch in %s chunk", ErrMalformedPNG, chunkType)
	}
	return nil
}

// truncated converts end-of-file errors into ErrMalformedPNG and passes
// genuine I/O errors through.
func truncated(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: unexpected end of file reading %s", ErrMalformedPNG, what)
	}
	return err
}

// decodeText keeps valid UTF-8 as is and otherwise decodes ISO-8859-1, which
// is the encoding PNG mandates for tEXt.
func decodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(decoded)
}
