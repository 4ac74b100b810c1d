// Package compressor re-encodes images so that they fit under a target
// size ceiling. It lowers JPEG quality step by step and, when quality
// alone is not enough, downscales the pixel dimensions, with a hard
// floor that guarantees termination.
package compressor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

var (
	// ErrInvalidFileType is returned when the declared media type of the
	// source is not an image type. No decode work is performed.
	ErrInvalidFileType = errors.New("invalid file type: not an image")

	// ErrDecode is returned when the source bytes cannot be parsed as an image.
	ErrDecode = errors.New("failed to decode image")

	// ErrEncode is returned when re-encoding produced no output.
	ErrEncode = errors.New("failed to encode image")

	// ErrRead is returned when the raw source could not be read into memory.
	ErrRead = errors.New("failed to read file")
)

const (
	// initialQuality is the JPEG quality the first encode attempt uses.
	initialQuality = 90

	// minQuality is the lowest quality tried before the dimension
	// ceiling is lowered.
	minQuality = 10

	// qualityStep is subtracted from the quality after each rejected attempt.
	qualityStep = 10

	// initialMaxDimension caps the longer image side on the first attempt.
	initialMaxDimension = 1200

	// dimensionStep is subtracted from the ceiling once quality is exhausted.
	dimensionStep = 100

	// minDimension is the hard floor for the ceiling. Once reached, one
	// final encode at minQuality is accepted unconditionally.
	minDimension = 200
)

// OutputContentType is the media type of every compressed result,
// regardless of the source format.
const OutputContentType = "image/jpeg"

// Source is the raw user-selected file: bytes plus the declared media type.
type Source struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Result is a freshly encoded file ready to replace the source in an
// upload. Filename is carried over from the source; ContentType is
// always OutputContentType.
type Result struct {
	Filename    string
	ContentType string
	Data        []byte
	Width       int
	Height      int
	ModTime     time.Time
}

// Size returns the encoded byte size of the result.
func (r *Result) Size() int64 {
	return int64(len(r.Data))
}

// Compress re-encodes src as a JPEG at or under targetKB kilobytes.
//
// Quality starts at initialQuality and drops by qualityStep after each
// attempt that comes out too large. When quality bottoms out, it resets
// and the dimension ceiling shrinks by dimensionStep instead. When the
// ceiling would pass below minDimension, a last encode at minQuality is
// accepted no matter its size, so the call always returns within a
// bounded number of attempts.
//
// Every error is one of ErrInvalidFileType, ErrDecode or ErrEncode; a
// nil result is always paired with a non-nil error and vice versa.
func Compress(src Source, targetKB int) (*Result, error) {
	if !strings.HasPrefix(src.ContentType, "image/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFileType, src.ContentType)
	}

	img, err := imaging.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	targetBytes := targetKB * 1024
	quality := initialQuality
	maxDimension := initialMaxDimension

	for {
		res, err := encodeScaled(src.Filename, img, maxDimension, quality)
		if err != nil {
			return nil, err
		}

		if len(res.Data) <= targetBytes {
			return res, nil
		}

		quality -= qualityStep
		if quality >= minQuality {
			continue
		}

		// Quality exhausted at this ceiling: start over with a smaller one.
		quality = initialQuality
		maxDimension -= dimensionStep

		if maxDimension < minDimension {
			// Hard floor. One final encode at minimum quality, accepted
			// unconditionally so the upload never fails on an
			// unreachable target.
			return encodeScaled(src.Filename, img, minDimension, minQuality)
		}
	}
}

// CompressReader reads the whole file from r and compresses it. Read
// failures are reported as ErrRead.
func CompressReader(r io.Reader, filename, contentType string, targetKB int) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}

	return Compress(Source{Filename: filename, ContentType: contentType, Data: data}, targetKB)
}

// encodeScaled downscales img so its longer side fits under maxDimension
// (aspect ratio preserved) and encodes it as a JPEG at the given quality.
func encodeScaled(filename string, img image.Image, maxDimension, quality int) (*Result, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width > maxDimension || height > maxDimension {
		// Fit scales proportionally so the longer side lands on the ceiling.
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)

		b := img.Bounds()
		width, height = b.Dx(), b.Dy()
	}

	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	return &Result{
		Filename:    filename,
		ContentType: OutputContentType,
		Data:        buf.Bytes(),
		Width:       width,
		Height:      height,
		ModTime:     time.Now(),
	}, nil
}
