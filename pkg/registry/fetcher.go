// Package registry downloads model files from a Hugging Face style hub and
// keeps them in a local cache directory.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the public Hugging Face hub
	DefaultBaseURL = "https://huggingface.co"
	// DefaultRevision is the branch files are resolved against
	DefaultRevision = "main"
)

// Config configures a Fetcher
type Config struct {
	BaseURL  string
	Revision string
	CacheDir string
	Token    string
	Timeout  time.Duration
}

// Fetcher resolves repo files to local paths, downloading them once
type Fetcher struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFetcher creates a new Fetcher
func NewFetcher(config Config, logger *zap.Logger) (*Fetcher, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Revision == "" {
		config.Revision = DefaultRevision
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Minute
	}
	if config.CacheDir == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("no cache directory configured: %w", err)
		}
		config.CacheDir = filepath.Join(dir, "character-extractor", "models")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid registry URL: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fetcher{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

// LocalPath is where file from repo is stored once fetched
func (f *Fetcher) LocalPath(repo, file string) string {
	return filepath.Join(f.config.CacheDir, filepath.FromSlash(repo), f.config.Revision, filepath.FromSlash(file))
}

// Fetch returns the local path of file in repo, downloading it first unless
// it is already cached.
func (f *Fetcher) Fetch(ctx context.Context, repo, file string) (string, error) {
	if repo == "" || file == "" {
		return "", fmt.Errorf("repo and file are required")
	}
	if strings.Contains(repo, "..") || strings.Contains(file, "..") {
		return "", fmt.Errorf("invalid path %s/%s", repo, file)
	}

	local := f.LocalPath(repo, file)
	if info, err := os.Stat(local); err == nil && info.Size() > 0 {
		f.logger.Debug("model file cached", zap.String("path", local))
		return local, nil
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	fileURL := fmt.Sprintf("%s/%s/resolve/%s/%s",
		strings.TrimRight(f.config.BaseURL, "/"), repo, url.PathEscape(f.config.Revision), file)

	start := time.Now()
	n, err := f.download(ctx, fileURL, local)
	if err != nil {
		return "", err
	}

	f.logger.Info("model file downloaded",
		zap.String("url", fileURL),
		zap.String("path", local),
		zap.Int64("bytes", n),
		zap.Duration("latency", time.Since(start)),
	)
	return local, nil
}

// download streams url into a temp file next to dest and renames it into
// place once complete
func (f *Fetcher) download(ctx context.Context, fileURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if f.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.config.Token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("registry returned status %d for %s", resp.StatusCode, fileURL)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", dest, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, fmt.Errorf("failed to move download into place: %w", err)
	}
	return n, nil
}
