//go:generate go run go.uber.org/mock/mockgen -source=generator.go -destination=../../mocks/mock_generator.go -package=mocks
package vlm

import (
	"context"
	"fmt"
	"image"

	"github.com/menta2k/character-extractor/pkg/client"
	"github.com/menta2k/character-extractor/pkg/processing"
	"github.com/menta2k/character-extractor/pkg/types"
)

// Generator answers a free-text prompt about an image
type Generator interface {
	Answer(ctx context.Context, img image.Image, prompt string) (string, error)
}

// VisionGenerator answers prompts through a vision backend and a fixed model
type VisionGenerator struct {
	client    client.VisionClient
	model     string
	opts      types.ImageOptions
	processor *processing.Processor
}

// NewVisionGenerator creates a Generator backed by a vision client
func NewVisionGenerator(client client.VisionClient, model string, opts types.ImageOptions) *VisionGenerator {
	return &VisionGenerator{
		client:    client,
		model:     model,
		opts:      opts,
		processor: processing.NewProcessor(),
	}
}

// Answer encodes the image and sends it with the prompt
func (g *VisionGenerator) Answer(ctx context.Context, img image.Image, prompt string) (string, error) {
	imgB64, err := g.processor.PrepareImageForModel(img, g.opts)
	if err != nil {
		return "", fmt.Errorf("failed to prepare image: %w", err)
	}
	return g.client.SimpleQuery(ctx, g.model, prompt, imgB64)
}
