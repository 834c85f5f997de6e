package cropper

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/character-extractor/internal/utils"
	"github.com/menta2k/character-extractor/pkg/processing"
	"github.com/menta2k/character-extractor/pkg/types"
)

// DebugOverlayName is the file written next to the crops when debug is enabled
const DebugOverlayName = "000_detections.png"

// PersonDetector finds person boxes in an image
type PersonDetector interface {
	DetectPersons(ctx context.Context, img image.Image) ([]types.Detection, error)
}

// Config holds configuration for person cropping
type Config struct {
	Format      string
	Quality     int
	Lossless    bool
	MinCropSize int
	Debug       bool
}

// PersonCropper detects characters and saves each one as its own image
type PersonCropper struct {
	detector  PersonDetector
	processor *processing.Processor
	config    Config
	logger    *zap.Logger
}

// New creates a new PersonCropper
func New(detector PersonDetector, config Config, logger *zap.Logger) *PersonCropper {
	if config.Format == "" {
		config.Format = "jpg"
	}
	if config.Quality <= 0 {
		config.Quality = 95
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersonCropper{
		detector:  detector,
		processor: processing.NewProcessor(),
		config:    config,
		logger:    logger,
	}
}

// Crop detects persons in the image and writes one file per person to
// outputDir, named cropped_person_<n> in detection order. An image with no
// persons yields an empty slice.
func (c *PersonCropper) Crop(ctx context.Context, imagePath, outputDir string) ([]string, error) {
	if err := utils.EnsureDir(outputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	img, err := c.processor.LoadImageSmart(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	persons, err := c.detector.DetectPersons(ctx, img)
	if err != nil {
		return nil, err
	}

	if c.config.Debug {
		overlay := c.processor.CreateDebugOverlay(img, persons)
		dbgPath := filepath.Join(outputDir, DebugOverlayName)
		if err := c.processor.SaveImage(overlay, dbgPath, "png", 0, false); err != nil {
			c.logger.Warn("debug overlay save failed", zap.String("path", dbgPath), zap.Error(err))
		}
	}

	ext := strings.ToLower(c.config.Format)
	paths := make([]string, 0, len(persons))
	for i, person := range persons {
		cropped, err := c.processor.CropImageToBox(img, person.Box)
		if err != nil {
			c.logger.Debug("skipping empty crop", zap.Int("detection", i))
			continue
		}
		if c.config.MinCropSize > 0 {
			if err := c.processor.ValidateImage(cropped, c.config.MinCropSize); err != nil {
				c.logger.Debug("skipping small crop", zap.Int("detection", i), zap.Error(err))
				continue
			}
		}

		outPath := filepath.Join(outputDir, fmt.Sprintf("cropped_person_%d.%s", len(paths), ext))
		if err := c.processor.SaveImage(cropped, outPath, ext, c.config.Quality, c.config.Lossless); err != nil {
			return nil, fmt.Errorf("failed to save crop %s: %w", outPath, err)
		}
		paths = append(paths, outPath)
	}

	c.logger.Info("persons cropped",
		zap.String("image", imagePath),
		zap.Int("detected", len(persons)),
		zap.Int("saved", len(paths)),
	)
	return paths, nil
}
