package utils

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4))))
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/a.jpg"))
	assert.False(t, IsURL("/tmp/a.jpg"))
}

func TestCheckInput(t *testing.T) {
	dir := t.TempDir()

	img := filepath.Join(dir, "scene.png")
	writePNG(t, img)
	require.NoError(t, CheckInput(img))

	mtype, err := DetectImageMIME(img)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mtype)

	// Extension says image, content says text
	fake := filepath.Join(dir, "fake.jpg")
	require.NoError(t, os.WriteFile(fake, []byte("hello world"), 0o644))
	assert.Error(t, CheckInput(fake))

	assert.Error(t, CheckInput(filepath.Join(dir, "missing.png")))
	assert.Error(t, CheckInput(dir))
	assert.NoError(t, CheckInput("https://example.com/a.jpg"))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, EnsureDir(file))
	assert.Error(t, EnsureDir(filepath.Join(file, "sub")))
}
