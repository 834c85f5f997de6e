package processing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/character-extractor/pkg/types"
)

// createTestImage creates a gradient image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8((x * 255) / width), uint8((y * 255) / height), 128, 255})
		}
	}
	return img
}

func TestBoxToRect(t *testing.T) {
	bounds := image.Rect(0, 0, 200, 100)

	r := BoxToRect(types.Box{X: 0.25, Y: 0.5, W: 0.5, H: 0.5}, bounds)
	assert.Equal(t, image.Rect(50, 50, 150, 100), r)

	// Out of range coordinates are clamped
	r = BoxToRect(types.Box{X: -1, Y: -1, W: 3, H: 3}, bounds)
	assert.Equal(t, bounds, r)
}

func TestCropImageToBox(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(200, 100)

	cropped, err := p.CropImageToBox(img, types.Box{X: 0.1, Y: 0.1, W: 0.5, H: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 100, cropped.Bounds().Dx())
	assert.Equal(t, 50, cropped.Bounds().Dy())

	_, err = p.CropImageToBox(img, types.Box{X: 0.5, Y: 0.5, W: 0, H: 0})
	assert.Error(t, err)
}

func TestSaveAndLoadImage(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(64, 48)
	dir := t.TempDir()

	for _, format := range []string{"jpg", "png", "webp"} {
		path := filepath.Join(dir, "out."+format)
		require.NoError(t, p.SaveImage(img, path, format, 90, false), format)

		loaded, err := p.LoadImage(path)
		require.NoError(t, err, format)
		assert.Equal(t, 64, loaded.Bounds().Dx(), format)
		assert.Equal(t, 48, loaded.Bounds().Dy(), format)
	}

	_, err := p.LoadImage(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestSaveImage_WebPWriteFailure(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(16, 16)

	assert.Error(t, p.SaveImage(img, t.TempDir(), "webp", 90, false))

	// /dev/full accepts the open and fails every write
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	assert.Error(t, p.SaveImage(img, "/dev/full", "webp", 90, true))
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(400, 200)

	b64, err := p.PrepareImageForModel(img, types.ImageOptions{Format: "png", MaxDim: 100})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())
}

func TestValidateImage(t *testing.T) {
	p := NewProcessor()
	assert.NoError(t, p.ValidateImage(createTestImage(64, 64), 32))
	assert.Error(t, p.ValidateImage(createTestImage(16, 64), 32))
}

func TestLoadImageFromURL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, createTestImage(20, 10)))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(buf.Bytes())
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProcessor()
	img, err := p.LoadImageSmart(srv.URL + "/img.png")
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())

	_, err = p.LoadImageFromURL(srv.URL + "/page")
	assert.Error(t, err)

	_, err = p.LoadImageFromURL(srv.URL + "/missing")
	assert.Error(t, err)

	_, err = p.LoadImageFromURL("ftp://example.com/a.png")
	assert.Error(t, err)
}

func TestCreateDebugOverlay(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(100, 100)

	overlay := p.CreateDebugOverlay(img, []types.Detection{
		{Label: "person", Confidence: 0.9, Box: types.Box{X: 0.1, Y: 0.1, W: 0.5, H: 0.5}},
	})
	r, g, b, _ := overlay.At(10, 30).RGBA()
	assert.Equal(t, uint32(0), r>>8)
	assert.Equal(t, uint32(255), g>>8)
	assert.Equal(t, uint32(0), b>>8)
}
