package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// EnsureDir creates a directory and its parents if they don't exist. A path
// that exists as a regular file is an error.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// IsURL reports whether source is an http(s) address
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// DetectImageMIME sniffs the file content and returns its MIME type. Files
// that are not images are rejected whatever their extension.
func DetectImageMIME(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%s is %s, not an image", path, mtype.String())
	}
	return mtype.String(), nil
}

// CheckInput validates an image source before processing. URLs are left to
// the downloader.
func CheckInput(source string) error {
	if IsURL(source) {
		return nil
	}
	if !FileExists(source) {
		return fmt.Errorf("input file not found: %s", source)
	}
	_, err := DetectImageMIME(source)
	return err
}
