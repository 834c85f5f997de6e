package vlm

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/menta2k/character-extractor/mocks"
	"github.com/menta2k/character-extractor/pkg/types"
)

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 16, 16))
}

func questionText(attribute string) string {
	for _, q := range Questions {
		if q.Attribute == attribute {
			return q.Text
		}
	}
	return ""
}

func TestValidate(t *testing.T) {
	gender := questionText("Gender")

	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"option in different case", "Female", "Female"},
		{"not an option", "robot", Unknown},
		{"surrounding whitespace", "  male \n", "male"},
		{"trailing period", "female.", "female"},
		{"empty", "", Unknown},
		{"only a period", ".", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.answer, gender))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "Question: What? Answer:", BuildPrompt("What?", ""))
	assert.Equal(t, "Question: Hair: long_hair What? Answer:", BuildPrompt("What?", "Hair: long_hair"))
}

func TestExtractAttributes_AllQuestions(t *testing.T) {
	ctrl := gomock.NewController(t)
	generator := mocks.NewMockGenerator(ctrl)

	calls := make([]any, 0, len(Questions))
	for _, q := range Questions {
		calls = append(calls, generator.EXPECT().
			Answer(gomock.Any(), gomock.Any(), BuildPrompt(q.Text, "")).
			Return("robot", nil))
	}
	gomock.InOrder(calls...)

	e := NewExtractor(generator, nil)
	attrs, err := e.ExtractAttributes(context.Background(), testImage(), nil, "")
	require.NoError(t, err)
	require.Len(t, attrs, len(Questions))
	for _, q := range Questions {
		assert.Equal(t, Unknown, attrs[q.Attribute])
	}
}

func TestExtractAttributes_Topics(t *testing.T) {
	ctrl := gomock.NewController(t)
	generator := mocks.NewMockGenerator(ctrl)

	tagContext := "Hair Color: blonde_hair"
	gomock.InOrder(
		generator.EXPECT().
			Answer(gomock.Any(), gomock.Any(), BuildPrompt(questionText("Gender"), tagContext)).
			Return("Female", nil),
		generator.EXPECT().
			Answer(gomock.Any(), gomock.Any(), BuildPrompt(questionText("Ethnicity"), tagContext)).
			Return("asian.", nil),
	)

	e := NewExtractor(generator, nil)
	attrs, err := e.ExtractAttributes(context.Background(), testImage(),
		[]string{"Ethnicity", "Gender", "Favorite Food"}, tagContext)
	require.NoError(t, err)
	assert.Equal(t, types.CharacterAttributes{"Gender": "Female", "Ethnicity": "asian"}, attrs)
}

func TestExtractAttributes_ContextNotValidated(t *testing.T) {
	ctrl := gomock.NewController(t)
	generator := mocks.NewMockGenerator(ctrl)
	// "blonde_hair" only appears in the context, not in the question
	generator.EXPECT().Answer(gomock.Any(), gomock.Any(), gomock.Any()).Return("blonde_hair", nil)

	e := NewExtractor(generator, nil)
	attrs, err := e.ExtractAttributes(context.Background(), testImage(), []string{"Gender"}, "Hair Color: blonde_hair")
	require.NoError(t, err)
	assert.Equal(t, Unknown, attrs["Gender"])
}

func TestExtractAttributes_GeneratorError(t *testing.T) {
	ctrl := gomock.NewController(t)
	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().Answer(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("timeout"))

	e := NewExtractor(generator, nil)
	_, err := e.ExtractAttributes(context.Background(), testImage(), nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Art Style")
	assert.Contains(t, err.Error(), "timeout")
}

func TestVisionGenerator(t *testing.T) {
	ctrl := gomock.NewController(t)
	visionClient := mocks.NewMockVisionClient(ctrl)
	visionClient.EXPECT().
		SimpleQuery(gomock.Any(), "blip", "Question: hi Answer:", gomock.Not("")).
		Return(" teen ", nil)

	g := NewVisionGenerator(visionClient, "blip", types.ImageOptions{Format: "png"})
	answer, err := g.Answer(context.Background(), testImage(), "Question: hi Answer:")
	require.NoError(t, err)
	assert.Equal(t, "teen", strings.TrimSpace(answer))
}
