package compressor

import (
	"bytes"
	"image"
	"image/color"
	"math/rand"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newGradientPNG produces a smooth image that JPEG compresses well.
func newGradientPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: uint8((x + y) * 255 / (width + height)),
				A: 255,
			})
		}
	}

	return encodePNG(t, img)
}

// newNoisePNG produces a worst-case image that resists JPEG compression.
func newNoisePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	rng := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}

	return encodePNG(t, img)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	buf := bytes.NewBuffer(nil)
	require.NoError(t, imaging.Encode(buf, img, imaging.PNG))

	return buf.Bytes()
}

func decodeResult(t *testing.T, res *Result) (image.Image, string) {
	t.Helper()

	img, format, err := image.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)

	return img, format
}

func TestCompress_RejectsNonImage(t *testing.T) {
	src := Source{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Data:        []byte("definitely not pixels"),
	}

	res, err := Compress(src, 200)

	require.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidFileType)
}

func TestCompress_DecodeFailure(t *testing.T) {
	src := Source{
		Filename:    "broken.png",
		ContentType: "image/png",
		Data:        []byte{0xde, 0xad, 0xbe, 0xef},
	}

	res, err := Compress(src, 200)

	require.Nil(t, res)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestCompress_SmallImagePassesFirstAttempt(t *testing.T) {
	src := Source{
		Filename:    "tiny.png",
		ContentType: "image/png",
		Data:        newGradientPNG(t, 100, 100),
	}

	res, err := Compress(src, 200)

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.LessOrEqual(t, int(res.Size()), 200*1024)
	assert.Equal(t, "tiny.png", res.Filename)
	assert.Equal(t, OutputContentType, res.ContentType)

	// Already under the ceiling, so no downscaling happens.
	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 100, res.Height)

	img, format := decodeResult(t, res)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 100, img.Bounds().Dx())
}

func TestCompress_LargeImageDownscaledToCeiling(t *testing.T) {
	src := Source{
		Filename:    "big.png",
		ContentType: "image/png",
		Data:        newGradientPNG(t, 3000, 2000),
	}

	res, err := Compress(src, 300)

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.LessOrEqual(t, int(res.Size()), 300*1024)

	// The long side lands on the 1200 px ceiling, aspect ratio preserved.
	assert.LessOrEqual(t, res.Width, 1200)
	assert.LessOrEqual(t, res.Height, 1200)
	assert.InDelta(t, 1.5, float64(res.Width)/float64(res.Height), 0.01)

	_, format := decodeResult(t, res)
	assert.Equal(t, "jpeg", format)
}

func TestCompress_HardTargetMetByDimensionStepping(t *testing.T) {
	src := Source{
		Filename:    "noise.png",
		ContentType: "image/png",
		Data:        newNoisePNG(t, 1600, 1200),
	}

	res, err := Compress(src, 100)

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.LessOrEqual(t, int(res.Size()), 100*1024)
	assert.InDelta(t, float64(1600)/float64(1200), float64(res.Width)/float64(res.Height), 0.02)
}

func TestCompress_UnreachableTargetHitsFloor(t *testing.T) {
	src := Source{
		Filename:    "noise.png",
		ContentType: "image/png",
		Data:        newNoisePNG(t, 600, 600),
	}

	// 1 KB is below what any quality/dimension combination can reach, so
	// the floor encode must still return a result.
	res, err := Compress(src, 1)

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.LessOrEqual(t, res.Width, 200)
	assert.LessOrEqual(t, res.Height, 200)
	assert.Equal(t, OutputContentType, res.ContentType)
}

func TestCompress_RecompressionConverges(t *testing.T) {
	src := Source{
		Filename:    "big.png",
		ContentType: "image/png",
		Data:        newGradientPNG(t, 2400, 1600),
	}

	first, err := Compress(src, 150)
	require.NoError(t, err)
	require.LessOrEqual(t, int(first.Size()), 150*1024)

	second, err := Compress(Source{
		Filename:    first.Filename,
		ContentType: first.ContentType,
		Data:        first.Data,
	}, 150)
	require.NoError(t, err)

	// Re-applying with the same target stays under the ceiling and does
	// not blow back up past it.
	assert.LessOrEqual(t, int(second.Size()), 150*1024)
}

func TestCompress_FreshModTime(t *testing.T) {
	before := time.Now()

	res, err := Compress(Source{
		Filename:    "tiny.png",
		ContentType: "image/png",
		Data:        newGradientPNG(t, 50, 50),
	}, 200)

	require.NoError(t, err)
	assert.False(t, res.ModTime.Before(before))
	assert.False(t, res.ModTime.After(time.Now()))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, assert.AnError
}

func TestCompressReader_ReadFailure(t *testing.T) {
	res, err := CompressReader(failingReader{}, "x.png", "image/png", 200)

	require.Nil(t, res)
	assert.ErrorIs(t, err, ErrRead)
}

func TestCompressReader_Success(t *testing.T) {
	data := newGradientPNG(t, 80, 40)

	res, err := CompressReader(bytes.NewReader(data), "wide.png", "image/png", 200)

	require.NoError(t, err)
	assert.Equal(t, 80, res.Width)
	assert.Equal(t, 40, res.Height)
}
