// Package onnx runs a DeepDanbooru tag model exported to ONNX.
package onnx

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// DefaultInputSize is used when the model reports a dynamic input side
const DefaultInputSize = 512

var initOnce sync.Once
var initErr error

// Options configures the ONNX runtime and model
type Options struct {
	// SharedLibraryPath points at libonnxruntime. Empty uses the loader default.
	SharedLibraryPath string
	// InputSize overrides the side length read from the model
	InputSize int
}

// Classifier is a multi-label tag classifier backed by an ONNX session
type Classifier struct {
	labels  []string
	size    int
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	mu      sync.Mutex
	logger  *zap.Logger
}

// NewClassifier loads modelPath and prepares reusable input and output
// tensors. labels must match the model's output width.
func NewClassifier(modelPath string, labels []string, opts Options, logger *zap.Logger) (*Classifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := initRuntime(opts.SharedLibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model: %w", err)
	}
	if len(inputs) != 1 || len(outputs) == 0 {
		return nil, fmt.Errorf("unexpected model signature: %d inputs, %d outputs", len(inputs), len(outputs))
	}

	size := opts.InputSize
	if size <= 0 {
		size = inputSide(inputs[0].Dimensions)
	}
	if dims := outputs[0].Dimensions; len(dims) == 2 && dims[1] > 0 && int(dims[1]) != len(labels) {
		return nil, fmt.Errorf("model has %d outputs but %d labels were loaded", dims[1], len(labels))
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(size), int64(size), 3))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(labels))))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("failed to allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logger.Info("tag model loaded",
		zap.String("model", modelPath),
		zap.Int("input_size", size),
		zap.Int("labels", len(labels)),
	)
	return &Classifier{
		labels:  labels,
		size:    size,
		session: session,
		input:   input,
		output:  output,
		logger:  logger,
	}, nil
}

// Labels returns the tag vocabulary aligned with Infer's output
func (c *Classifier) Labels() []string {
	return c.labels
}

// Infer returns one probability per label
func (c *Classifier) Infer(ctx context.Context, img image.Image) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := Preprocess(img, c.size)

	c.mu.Lock()
	defer c.mu.Unlock()

	copy(c.input.GetData(), data)
	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run failed: %w", err)
	}

	raw := c.output.GetData()
	probs := make([]float64, len(raw))
	for i, v := range raw {
		probs[i] = float64(v)
	}
	return probs, nil
}

// Close releases the session and tensors
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, destroy := range []func() error{c.session.Destroy, c.input.Destroy, c.output.Destroy} {
		if err := destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Preprocess scales img to fit a size x size square keeping its aspect
// ratio, centers it, fills the borders by repeating edge pixels and returns
// NHWC RGB values in [0,1].
func Preprocess(img image.Image, size int) []float32 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float32, size*size*3)
	if w == 0 || h == 0 {
		return out
	}

	nw, nh := size, size
	if w >= h {
		nh = max(1, h*size/w)
	} else {
		nw = max(1, w*size/h)
	}
	fitted := imaging.Resize(img, nw, nh, imaging.Box)
	offX := (size - nw) / 2
	offY := (size - nh) / 2

	i := 0
	for y := 0; y < size; y++ {
		sy := clampInt(y-offY, 0, nh-1)
		for x := 0; x < size; x++ {
			sx := clampInt(x-offX, 0, nw-1)
			p := fitted.PixOffset(sx, sy)
			out[i] = float32(fitted.Pix[p]) / 255
			out[i+1] = float32(fitted.Pix[p+1]) / 255
			out[i+2] = float32(fitted.Pix[p+2]) / 255
			i += 3
		}
	}
	return out
}

func initRuntime(libPath string) error {
	initOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = fmt.Errorf("failed to initialize onnxruntime: %w", err)
		}
	})
	return initErr
}

// inputSide reads H from an NHWC shape
func inputSide(dims ort.Shape) int {
	if len(dims) == 4 && dims[1] > 0 {
		return int(dims[1])
	}
	return DefaultInputSize
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
