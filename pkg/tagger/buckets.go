package tagger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/character-extractor/pkg/types"
)

// LoadBuckets reads the bucket configuration. A missing file is not fatal: a
// warning is logged and an empty, non-nil configuration is returned.
func LoadBuckets(path string, logger *zap.Logger) (types.Buckets, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("bucket file not found, using empty tag buckets", zap.String("path", path))
		return types.Buckets{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bucket file: %w", err)
	}

	buckets := types.Buckets{}
	if err := json.Unmarshal(data, &buckets); err != nil {
		return nil, fmt.Errorf("failed to parse bucket file: %w", err)
	}
	return buckets, nil
}

// LoadLabels reads a label vocabulary with one tag per line (tags.txt).
// Line order is significant: it must match the classifier output.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}

	// Drop the trailing blank line most tag files end with
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	return labels, nil
}
