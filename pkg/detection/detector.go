package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/character-extractor/pkg/client"
	"github.com/menta2k/character-extractor/pkg/processing"
	"github.com/menta2k/character-extractor/pkg/types"
)

// PersonLabel is the category kept by DetectPersons
const PersonLabel = "person"

// DefaultPrompt is the default prompt for person detection
const DefaultPrompt = `You are an object detector for anime and illustration artwork.

Return JSON only:
{
  "detections": [
    {"label": "person", "confidence": 0.0, "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}}
  ]
}

HARD RULES
- List EVERY character separately. Use the label "person" for any human or humanoid character, drawn or real.
- Other prominent objects may be listed with a short lowercase label.
- All coordinates are normalized to [0,1] (NOT pixels). x,y is the top-left corner.
- Each box must tightly include the whole visible body of one character.
- confidence is your certainty in [0,1].
- If nothing is found, return {"detections": []}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// ErrNilResult is returned when a backend answers with neither result nor error
var ErrNilResult = errors.New("detection backend returned no result")

// Config holds configuration for the detector
type Config struct {
	Model         string
	Prompt        string
	MinConfidence float64
	Image         types.ImageOptions
}

// Detector finds characters in images using a vision model
type Detector struct {
	client    client.VisionClient
	processor *processing.Processor
	config    Config
	logger    *zap.Logger
}

// NewDetector creates a new detector with a vision client
func NewDetector(client client.VisionClient, config Config, logger *zap.Logger) *Detector {
	if config.Prompt == "" {
		config.Prompt = DefaultPrompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		client:    client,
		processor: processing.NewProcessor(),
		config:    config,
		logger:    logger,
	}
}

// Detect returns every object the model reports, with boxes clamped to the image
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]types.Detection, error) {
	imgB64, err := d.processor.PrepareImageForModel(img, d.config.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	result, err := d.client.DetectObjects(ctx, d.config.Model, d.config.Prompt, imgB64)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}
	if result == nil {
		return nil, ErrNilResult
	}

	bounds := img.Bounds()
	out := make([]types.Detection, 0, len(result.Detections))
	for _, det := range result.Detections {
		det.Label = strings.ToLower(strings.TrimSpace(det.Label))
		det.Confidence = clamp(det.Confidence, 0, 1)
		det.Box = normalizeBox(det.Box, bounds.Dx(), bounds.Dy())
		if det.Box.W <= 0 || det.Box.H <= 0 {
			continue
		}
		out = append(out, det)
	}
	return out, nil
}

// DetectPersons returns only detections labelled as a person above the confidence floor
func (d *Detector) DetectPersons(ctx context.Context, img image.Image) ([]types.Detection, error) {
	all, err := d.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	persons := FilterPersons(all, d.config.MinConfidence)
	d.logger.Debug("detections filtered",
		zap.Int("total", len(all)),
		zap.Int("persons", len(persons)),
	)
	return persons, nil
}

// FilterPersons keeps person detections with confidence >= minConfidence, in order
func FilterPersons(detections []types.Detection, minConfidence float64) []types.Detection {
	var persons []types.Detection
	for _, det := range detections {
		if !strings.EqualFold(det.Label, PersonLabel) {
			continue
		}
		if det.Confidence < minConfidence {
			continue
		}
		persons = append(persons, det)
	}
	return persons
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeBox ensures box coordinates are within [0,1] bounds. Boxes given in
// pixels are converted using the image size.
func normalizeBox(b types.Box, imgW, imgH int) types.Box {
	if imgW > 0 && imgH > 0 && (b.X > 1 || b.Y > 1 || b.W > 1 || b.H > 1) {
		b = types.Box{
			X: b.X / float64(imgW),
			Y: b.Y / float64(imgH),
			W: b.W / float64(imgW),
			H: b.H / float64(imgH),
		}
	}

	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.X+b.W, 0, 1) - x,
		H: clamp(b.Y+b.H, 0, 1) - y,
	}
}
