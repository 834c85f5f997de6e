//go:generate go run go.uber.org/mock/mockgen -source=interface.go -destination=../../mocks/mock_vision_client.go -package=mocks
package client

import (
	"context"

	"github.com/menta2k/character-extractor/pkg/types"
)

// VisionClient is implemented by every vision model backend
type VisionClient interface {
	// SimpleQuery asks a free-text question about an image
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	// DetectObjects asks for object boxes and parses the JSON answer
	DetectObjects(ctx context.Context, model, prompt, imgB64 string) (*types.DetectionResult, error)
}
