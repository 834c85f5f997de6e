//go:generate go run go.uber.org/mock/mockgen -source=classifier.go -destination=../../mocks/mock_classifier.go -package=mocks
package tagger

import (
	"context"
	"image"
)

// Classifier is a multi-label image classifier such as DeepDanbooru
type Classifier interface {
	// Labels returns the label vocabulary, index-aligned with Infer's output
	Labels() []string
	// Infer returns one probability per label
	Infer(ctx context.Context, img image.Image) ([]float64, error)
}
