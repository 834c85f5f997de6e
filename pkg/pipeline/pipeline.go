//go:generate go run go.uber.org/mock/mockgen -source=pipeline.go -destination=../../mocks/mock_pipeline.go -package=mocks

// Package pipeline ties person cropping, tag classification and VLM
// questioning together into one attribute map per character.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/menta2k/character-extractor/internal/utils"
	"github.com/menta2k/character-extractor/pkg/cache"
	"github.com/menta2k/character-extractor/pkg/processing"
	"github.com/menta2k/character-extractor/pkg/tagger"
	"github.com/menta2k/character-extractor/pkg/types"
)

// DefaultCropDir is where crops are written when no directory is configured
const DefaultCropDir = "cropped_persons"

// DefaultAlwaysAsk lists attributes the tag vocabulary cannot answer
var DefaultAlwaysAsk = []string{"Ethnicity"}

// Cropper cuts every character out of an image into its own file
type Cropper interface {
	Crop(ctx context.Context, imagePath, outputDir string) ([]string, error)
}

// Tagger classifies a character into tag buckets
type Tagger interface {
	PredictAll(ctx context.Context, img image.Image, threshold float64) (types.TaggerOutput, error)
}

// Extractor asks a vision-language model about selected attributes
type Extractor interface {
	ExtractAttributes(ctx context.Context, img image.Image, topics []string, tagContext string) (types.CharacterAttributes, error)
}

// Options tunes a Pipeline
type Options struct {
	// Threshold is the tag score cutoff. Zero means tagger.DefaultThreshold.
	Threshold float64
	CropDir   string
	// AlwaysAsk is appended to the VLM topics of every character. Nil means
	// DefaultAlwaysAsk, an empty slice asks nothing extra.
	AlwaysAsk []string
	// Fingerprint identifies the models in use and is mixed into cache keys
	Fingerprint string
	Cache       cache.ResultCache
}

// Pipeline extracts attributes for every character in an image
type Pipeline struct {
	cropper   Cropper
	tagger    Tagger
	extractor Extractor
	opts      Options
	processor *processing.Processor
	logger    *zap.Logger
}

// New creates a Pipeline
func New(cropper Cropper, tg Tagger, extractor Extractor, opts Options, logger *zap.Logger) *Pipeline {
	if opts.Threshold <= 0 {
		opts.Threshold = tagger.DefaultThreshold
	}
	if opts.CropDir == "" {
		opts.CropDir = DefaultCropDir
	}
	if opts.AlwaysAsk == nil {
		opts.AlwaysAsk = DefaultAlwaysAsk
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cropper:   cropper,
		tagger:    tg,
		extractor: extractor,
		opts:      opts,
		processor: processing.NewProcessor(),
		logger:    logger,
	}
}

// Options returns the effective options
func (p *Pipeline) Options() Options {
	return p.opts
}

// Process crops every character out of imagePath and extracts attributes for
// each crop in order. An image without characters gives an empty result. The
// first failing character aborts the whole image.
func (p *Pipeline) Process(ctx context.Context, imagePath string) (types.Result, error) {
	start := time.Now()

	crops, err := p.cropper.Crop(ctx, imagePath, p.opts.CropDir)
	if err != nil {
		return nil, fmt.Errorf("failed to crop persons: %w", err)
	}

	result := make(types.Result, len(crops))
	for _, crop := range crops {
		attrs, err := p.ProcessCharacter(ctx, crop)
		if err != nil {
			return nil, fmt.Errorf("failed to process %s: %w", crop, err)
		}
		result[crop] = attrs
	}

	p.logger.Info("image processed",
		zap.String("image", imagePath),
		zap.Int("characters", len(result)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// ProcessCharacter extracts the attributes of a single cropped character.
// The VLM is only asked about buckets the tagger was unsure of plus the
// always-ask attributes, and tag-derived values override VLM answers.
func (p *Pipeline) ProcessCharacter(ctx context.Context, cropPath string) (types.CharacterAttributes, error) {
	data, err := os.ReadFile(cropPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read crop: %w", err)
	}

	var key string
	if p.opts.Cache != nil {
		key = cache.Key(data, p.opts.Threshold, p.opts.Fingerprint)
		attrs, ok, err := p.opts.Cache.Get(key)
		if err != nil {
			p.logger.Warn("cache lookup failed", zap.String("crop", cropPath), zap.Error(err))
		} else if ok {
			p.logger.Debug("cache hit", zap.String("crop", cropPath))
			return attrs, nil
		}
	}

	img, err := p.processor.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode crop: %w", err)
	}

	out, err := p.tagger.PredictAll(ctx, img, p.opts.Threshold)
	if err != nil {
		return nil, err
	}

	topics := lo.Uniq(append(tagger.LowConfidenceBuckets(out.BestCandidates, p.opts.Threshold), p.opts.AlwaysAsk...))
	tagAttrs := tagger.Attributes(out.CategorizedTags)

	attrs := types.CharacterAttributes{}
	if len(topics) > 0 {
		attrs, err = p.extractor.ExtractAttributes(ctx, img, topics, tagger.FormatContext(out.CategorizedTags))
		if err != nil {
			return nil, err
		}
	}
	attrs = lo.Assign(attrs, tagAttrs)

	p.logger.Debug("character processed",
		zap.String("crop", cropPath),
		zap.Strings("topics", topics),
		zap.Int("tag_attributes", len(tagAttrs)),
		zap.Int("attributes", len(attrs)),
	)

	if p.opts.Cache != nil {
		if err := p.opts.Cache.Put(key, attrs); err != nil {
			p.logger.Warn("cache store failed", zap.String("crop", cropPath), zap.Error(err))
		}
	}
	return attrs, nil
}

// WriteResult saves a result as indented JSON, creating parent directories
func WriteResult(path string, result types.Result) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
