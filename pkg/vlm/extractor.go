// Package vlm asks a vision-language model a fixed set of multiple-choice
// questions about a character and keeps only answers that name one of the
// offered options.
package vlm

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/menta2k/character-extractor/pkg/types"
)

// Unknown is stored for attributes whose answer did not pass validation
const Unknown = "Unknown"

// Question is one attribute and the prompt asking for it
type Question struct {
	Attribute string
	Text      string
}

// Questions is the ordered attribute question set
var Questions = []Question{
	{"Art Style", "What is the art style? Choose one: anime, cartoon, semi-realistic, realistic, 3D-rendered."},
	{"Age", "What is the character's age group? Choose from: child, teen, young adult, middle-aged, elderly."},
	{"Gender", "What is the character's gender? Choose from: male or female."},
	{"Ethnicity", "What is the character's ethnicity? Choose from: Asian, African, Caucasian, Hispanic, other."},
	{"Hair Color", "What is the character's hair color? Choose from: black, blonde, red, blue, green, brown, white, gray."},
	{"Hair Style", "What is the character's hair style? Choose from: ponytail, curly, straight, bun, braided, short bob."},
	{"Hair Length", "What is the character's hair length? Choose from: short, medium, long."},
	{"Eye Color", "What is the character's eye color? Choose from: black, brown, blue, green, gray, hazel, red."},
	{"Body Type", "What is the character's body type? Choose from: slim, muscular, curvy, average."},
	{"Dress", "What is the character's outfit style? Choose from: casual, formal, traditional, futuristic, uniform."},
	{"Facial Expression", "What is the character's facial expression? Choose from: neutral, smiling, serious, surprised, sad."},
	{"Unique Traits", "Does the character have any unique traits? Choose from: scars, tattoos, glasses, hat, jewelry, none."},
}

// Extractor runs the question set against a Generator
type Extractor struct {
	generator Generator
	logger    *zap.Logger
}

// NewExtractor creates a new attribute extractor
func NewExtractor(generator Generator, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		generator: generator,
		logger:    logger,
	}
}

// ExtractAttributes asks one question per attribute, in question-set order.
// An empty topics list asks everything; otherwise only the named attributes
// are asked and unknown names are ignored. A non-empty context is put in
// front of every question. The first generator error aborts extraction.
func (e *Extractor) ExtractAttributes(ctx context.Context, img image.Image, topics []string, tagContext string) (types.CharacterAttributes, error) {
	selected := Questions
	if len(topics) > 0 {
		selected = lo.Filter(Questions, func(q Question, _ int) bool {
			return lo.Contains(topics, q.Attribute)
		})
	}

	attrs := make(types.CharacterAttributes, len(selected))
	for _, q := range selected {
		start := time.Now()
		answer, err := e.generator.Answer(ctx, img, BuildPrompt(q.Text, tagContext))
		if err != nil {
			return nil, fmt.Errorf("failed to ask about %s: %w", q.Attribute, err)
		}
		attrs[q.Attribute] = Validate(answer, q.Text)

		e.logger.Debug("attribute answered",
			zap.String("attribute", q.Attribute),
			zap.String("answer", answer),
			zap.String("value", attrs[q.Attribute]),
			zap.Duration("latency", time.Since(start)),
		)
	}
	return attrs, nil
}

// BuildPrompt frames a question for a short direct answer
func BuildPrompt(question, tagContext string) string {
	if tagContext != "" {
		question = tagContext + " " + question
	}
	return "Question: " + question + " Answer:"
}

// Validate returns the trimmed answer when it names something the question
// offers, and Unknown otherwise.
func Validate(answer, question string) string {
	answer = strings.TrimSuffix(strings.TrimSpace(answer), ".")
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Unknown
	}
	if !strings.Contains(strings.ToLower(question), strings.ToLower(answer)) {
		return Unknown
	}
	return answer
}
