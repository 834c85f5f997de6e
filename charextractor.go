// Package charextractor extracts per-character attributes from anime and
// illustration artwork.
//
// An image goes through three stages:
//
//  1. Person cropping (pkg/cropper): a vision model returns one box per
//     character and each box is saved as its own image.
//  2. Tag classification (pkg/tagger): a DeepDanbooru model scores its tag
//     vocabulary and the tags are filed into attribute buckets such as
//     "Hair Color" or "Eye Color".
//  3. VLM questioning (pkg/vlm): a vision-language model is asked only about
//     the buckets the tagger was unsure of, plus attributes the tag
//     vocabulary cannot express.
//
// Basic usage:
//
//	cfg := config.Default()
//	ex, err := charextractor.New(ctx, cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ex.Close()
//
//	result, err := ex.Process(ctx, "scene.jpg")
//	// result maps every crop path to its attributes:
//	// {"cropped_persons/cropped_person_0.jpg": {"Gender": "female", "Hair Color": "blonde_hair", ...}}
//
// Everything that talks to a model sits behind a small interface
// (client.VisionClient, tagger.Classifier, vlm.Generator) so tests and
// embedders can swap backends.
package charextractor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/menta2k/character-extractor/internal/config"
	"github.com/menta2k/character-extractor/pkg/cache"
	"github.com/menta2k/character-extractor/pkg/client"
	"github.com/menta2k/character-extractor/pkg/cropper"
	"github.com/menta2k/character-extractor/pkg/detection"
	"github.com/menta2k/character-extractor/pkg/llamacpp"
	"github.com/menta2k/character-extractor/pkg/ollama"
	"github.com/menta2k/character-extractor/pkg/onnx"
	"github.com/menta2k/character-extractor/pkg/pipeline"
	"github.com/menta2k/character-extractor/pkg/processing"
	"github.com/menta2k/character-extractor/pkg/registry"
	"github.com/menta2k/character-extractor/pkg/tagger"
	"github.com/menta2k/character-extractor/pkg/types"
	"github.com/menta2k/character-extractor/pkg/vlm"
)

// Version of the character extractor
const Version = "0.3.0"

// Extractor wires cropping, tagging and VLM questioning together
type Extractor struct {
	config     *config.Config
	classifier tagger.Classifier
	cropper    *cropper.PersonCropper
	tagger     *tagger.Tagger
	pipeline   *pipeline.Pipeline
	cache      cache.ResultCache
	processor  *processing.Processor
	logger     *zap.Logger
}

// New builds an Extractor from configuration. The tag model and labels are
// downloaded through the model registry when no local paths are set.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Extractor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	visionClient, err := NewVisionClient(cfg.Backend, logger)
	if err != nil {
		return nil, err
	}

	modelPath, labelsPath, err := resolveTaggerFiles(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	labels, err := tagger.LoadLabels(labelsPath)
	if err != nil {
		return nil, err
	}
	classifier, err := onnx.NewClassifier(modelPath, labels, onnx.Options{
		SharedLibraryPath: cfg.Tagger.SharedLibraryPath,
		InputSize:         cfg.Tagger.InputSize,
	}, logger)
	if err != nil {
		return nil, err
	}

	ex, err := NewWithComponents(visionClient, classifier, cfg, logger)
	if err != nil {
		classifier.Close()
		return nil, err
	}
	return ex, nil
}

// NewWithComponents builds an Extractor around an existing vision backend and
// tag classifier. The classifier is closed by Close when it implements
// io.Closer.
func NewWithComponents(visionClient client.VisionClient, classifier tagger.Classifier, cfg *config.Config, logger *zap.Logger) (*Extractor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	buckets, err := tagger.LoadBuckets(cfg.Tagger.BucketsPath, logger)
	if err != nil {
		return nil, err
	}

	personCropper := newPersonCropper(visionClient, cfg, logger)

	tg := tagger.New(classifier, buckets, logger.Named("tagger"))
	extractor := vlm.NewExtractor(
		vlm.NewVisionGenerator(visionClient, cfg.Backend.VLMModel, imageOptions(cfg)),
		logger.Named("vlm"),
	)

	var resultCache cache.ResultCache
	if cfg.Cache.Enabled {
		bc, err := cache.Open(cfg.Cache.Dir, time.Duration(cfg.Cache.TTLHours)*time.Hour, logger.Named("cache"))
		if err != nil {
			return nil, err
		}
		resultCache = bc
	}

	p := pipeline.New(personCropper, tg, extractor, pipeline.Options{
		Threshold:   cfg.Pipeline.Threshold,
		CropDir:     cfg.Pipeline.CropDir,
		AlwaysAsk:   cfg.Pipeline.AlwaysAsk,
		Fingerprint: fingerprint(cfg, len(classifier.Labels())),
		Cache:       resultCache,
	}, logger.Named("pipeline"))

	return &Extractor{
		config:     cfg,
		classifier: classifier,
		cropper:    personCropper,
		tagger:     tg,
		pipeline:   p,
		cache:      resultCache,
		processor:  processing.NewProcessor(),
		logger:     logger,
	}, nil
}

// NewPersonCropper builds only the detection and cropping stage, for callers
// that do not need the tag model
func NewPersonCropper(cfg *config.Config, logger *zap.Logger) (*cropper.PersonCropper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	visionClient, err := NewVisionClient(cfg.Backend, logger)
	if err != nil {
		return nil, err
	}
	return newPersonCropper(visionClient, cfg, logger), nil
}

func newPersonCropper(visionClient client.VisionClient, cfg *config.Config, logger *zap.Logger) *cropper.PersonCropper {
	detector := detection.NewDetector(visionClient, detection.Config{
		Model:         cfg.Backend.DetectModel,
		Prompt:        cfg.Detector.Prompt,
		MinConfidence: cfg.Detector.MinConfidence,
		Image:         imageOptions(cfg),
	}, logger.Named("detector"))

	return cropper.New(detector, cropper.Config{
		Format:      cfg.Output.Format,
		Quality:     cfg.Output.Quality,
		Lossless:    cfg.Output.Lossless,
		MinCropSize: cfg.Detector.MinCropSize,
		Debug:       cfg.Detector.Debug,
	}, logger.Named("cropper"))
}

// imageOptions controls how images are encoded for the vision backend
func imageOptions(cfg *config.Config) types.ImageOptions {
	return types.ImageOptions{
		Format:  cfg.Backend.ImageFormat,
		MaxDim:  cfg.Backend.ImageMaxDim,
		Quality: 85,
	}
}

// NewVisionClient creates the vision backend named in cfg
func NewVisionClient(cfg config.BackendConfig, logger *zap.Logger) (client.VisionClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Type {
	case "ollama":
		c, err := ollama.NewClient(cfg.URL, logger.Named("ollama"))
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c.WithTimeout(timeout), nil
	case "llamacpp":
		c, err := llamacpp.NewClient(cfg.URL, cfg.APIKey, logger.Named("llamacpp"))
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c.WithTimeout(timeout), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", cfg.Type)
	}
}

// Process extracts attributes for every character in the image at source
func (e *Extractor) Process(ctx context.Context, source string) (types.Result, error) {
	return e.pipeline.Process(ctx, source)
}

// ProcessCharacter extracts attributes for an already cropped character
func (e *Extractor) ProcessCharacter(ctx context.Context, cropPath string) (types.CharacterAttributes, error) {
	return e.pipeline.ProcessCharacter(ctx, cropPath)
}

// Tag runs only the tag classifier on the image at source, with the same
// threshold Process uses
func (e *Extractor) Tag(ctx context.Context, source string) (types.TaggerOutput, error) {
	img, err := e.processor.LoadImageSmart(source)
	if err != nil {
		return types.TaggerOutput{}, fmt.Errorf("failed to load image: %w", err)
	}
	return e.tagger.PredictAll(ctx, img, e.pipeline.Options().Threshold)
}

// Crop runs only person cropping, writing crops to outputDir
func (e *Extractor) Crop(ctx context.Context, source, outputDir string) ([]string, error) {
	if outputDir == "" {
		outputDir = e.config.Pipeline.CropDir
	}
	return e.cropper.Crop(ctx, source, outputDir)
}

// Close releases the classifier and the result cache
func (e *Extractor) Close() error {
	var firstErr error
	if e.cache != nil {
		firstErr = e.cache.Close()
	}
	if closer, ok := e.classifier.(io.Closer); ok {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

func resolveTaggerFiles(ctx context.Context, cfg *config.Config, logger *zap.Logger) (string, string, error) {
	modelPath, labelsPath := cfg.Tagger.ModelPath, cfg.Tagger.LabelsPath
	if modelPath != "" && labelsPath != "" {
		return modelPath, labelsPath, nil
	}

	fetcher, err := registry.NewFetcher(registry.Config{
		BaseURL:  cfg.Registry.BaseURL,
		Revision: cfg.Registry.Revision,
		CacheDir: cfg.Registry.CacheDir,
		Token:    cfg.Registry.Token,
	}, logger.Named("registry"))
	if err != nil {
		return "", "", err
	}

	if modelPath == "" {
		if modelPath, err = fetcher.Fetch(ctx, cfg.Tagger.ModelRepo, cfg.Tagger.ModelFile); err != nil {
			return "", "", fmt.Errorf("failed to fetch tag model: %w", err)
		}
	}
	if labelsPath == "" {
		if labelsPath, err = fetcher.Fetch(ctx, cfg.Tagger.ModelRepo, cfg.Tagger.LabelsFile); err != nil {
			return "", "", fmt.Errorf("failed to fetch tag labels: %w", err)
		}
	}
	return modelPath, labelsPath, nil
}

// fingerprint identifies the models behind a cached result
func fingerprint(cfg *config.Config, labels int) string {
	model := cfg.Tagger.ModelPath
	if model == "" {
		model = cfg.Tagger.ModelRepo + "/" + cfg.Tagger.ModelFile
	}
	return strings.Join([]string{
		cfg.Backend.Type,
		cfg.Backend.VLMModel,
		cfg.Backend.DetectModel,
		model,
		cfg.Tagger.BucketsPath,
		fmt.Sprint(labels),
		strings.Join(cfg.Pipeline.AlwaysAsk, ","),
	}, "|")
}
