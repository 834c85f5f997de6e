package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/menta2k/character-extractor/mocks"
	"github.com/menta2k/character-extractor/pkg/cache"
	"github.com/menta2k/character-extractor/pkg/processing"
	"github.com/menta2k/character-extractor/pkg/tagger"
	"github.com/menta2k/character-extractor/pkg/types"
	"github.com/menta2k/character-extractor/pkg/vlm"
)

func writeCrop(t *testing.T, dir, name string, shade uint8) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 24; x++ {
			img.Set(x, y, color.RGBA{shade, shade, shade, 255})
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, processing.NewProcessor().SaveImage(img, path, "png", 0, false))
	return path
}

func sampleOutput() types.TaggerOutput {
	return types.TaggerOutput{
		CategorizedTags: types.CategorizedTags{
			"Hair Color": {{Tag: "blonde_hair", Score: 0.9}},
		},
		BestCandidates: types.BestCandidates{
			"Hair Color": {Tag: "blonde_hair", Score: 0.9},
			"Eye Color":  {Tag: "blue_eyes", Score: 0.1},
		},
	}
}

func TestProcess_NoPersons(t *testing.T) {
	ctrl := gomock.NewController(t)
	cropper := mocks.NewMockCropper(ctrl)
	tg := mocks.NewMockTagger(ctrl)
	extractor := mocks.NewMockExtractor(ctrl)

	cropper.EXPECT().Crop(gomock.Any(), "scene.jpg", "out").Return([]string{}, nil)

	p := New(cropper, tg, extractor, Options{CropDir: "out"}, nil)
	result, err := p.Process(context.Background(), "scene.jpg")
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestProcess_CropError(t *testing.T) {
	ctrl := gomock.NewController(t)
	cropper := mocks.NewMockCropper(ctrl)
	cropper.EXPECT().Crop(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("no such file"))

	p := New(cropper, mocks.NewMockTagger(ctrl), mocks.NewMockExtractor(ctrl), Options{}, nil)
	_, err := p.Process(context.Background(), "missing.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such file")
}

func TestProcessCharacter_MergePrecedence(t *testing.T) {
	ctrl := gomock.NewController(t)
	tg := mocks.NewMockTagger(ctrl)
	extractor := mocks.NewMockExtractor(ctrl)
	crop := writeCrop(t, t.TempDir(), "cropped_person_0.png", 128)

	tg.EXPECT().PredictAll(gomock.Any(), gomock.Any(), 0.4).Return(sampleOutput(), nil)
	extractor.EXPECT().
		ExtractAttributes(gomock.Any(), gomock.Any(), []string{"Eye Color", "Ethnicity"}, "Hair Color: blonde_hair").
		Return(types.CharacterAttributes{
			"Hair Color": "black",
			"Eye Color":  "blue",
			"Ethnicity":  "Asian",
		}, nil)

	p := New(mocks.NewMockCropper(ctrl), tg, extractor, Options{}, nil)
	attrs, err := p.ProcessCharacter(context.Background(), crop)
	require.NoError(t, err)
	assert.Equal(t, types.CharacterAttributes{
		"Hair Color": "blonde_hair",
		"Eye Color":  "blue",
		"Ethnicity":  "Asian",
	}, attrs)
}

func TestProcessCharacter_TopicsDeduplicated(t *testing.T) {
	ctrl := gomock.NewController(t)
	tg := mocks.NewMockTagger(ctrl)
	extractor := mocks.NewMockExtractor(ctrl)
	crop := writeCrop(t, t.TempDir(), "c.png", 10)

	tg.EXPECT().PredictAll(gomock.Any(), gomock.Any(), 0.6).Return(sampleOutput(), nil)
	extractor.EXPECT().
		ExtractAttributes(gomock.Any(), gomock.Any(), []string{"Eye Color", "Ethnicity"}, gomock.Any()).
		Return(types.CharacterAttributes{}, nil)

	p := New(mocks.NewMockCropper(ctrl), tg, extractor, Options{
		Threshold: 0.6,
		AlwaysAsk: []string{"Eye Color", "Ethnicity"},
	}, nil)
	_, err := p.ProcessCharacter(context.Background(), crop)
	require.NoError(t, err)
}

func TestProcessCharacter_NothingToAsk(t *testing.T) {
	ctrl := gomock.NewController(t)
	tg := mocks.NewMockTagger(ctrl)
	extractor := mocks.NewMockExtractor(ctrl)
	crop := writeCrop(t, t.TempDir(), "c.png", 10)

	out := sampleOutput()
	delete(out.BestCandidates, "Eye Color")
	tg.EXPECT().PredictAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(out, nil)

	p := New(mocks.NewMockCropper(ctrl), tg, extractor, Options{AlwaysAsk: []string{}}, nil)
	attrs, err := p.ProcessCharacter(context.Background(), crop)
	require.NoError(t, err)
	assert.Equal(t, types.CharacterAttributes{"Hair Color": "blonde_hair"}, attrs)
}

func TestProcess_AbortsOnFirstError(t *testing.T) {
	ctrl := gomock.NewController(t)
	cropper := mocks.NewMockCropper(ctrl)
	tg := mocks.NewMockTagger(ctrl)
	extractor := mocks.NewMockExtractor(ctrl)
	dir := t.TempDir()
	crops := []string{writeCrop(t, dir, "cropped_person_0.png", 1), writeCrop(t, dir, "cropped_person_1.png", 2)}

	cropper.EXPECT().Crop(gomock.Any(), gomock.Any(), dir).Return(crops, nil)
	tg.EXPECT().PredictAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(types.TaggerOutput{}, tagger.ErrNoLabels).Times(1)

	p := New(cropper, tg, extractor, Options{CropDir: dir}, nil)
	_, err := p.Process(context.Background(), "scene.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, tagger.ErrNoLabels)
	assert.Contains(t, err.Error(), "cropped_person_0.png")
}

func TestProcess_EndToEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	cropper := mocks.NewMockCropper(ctrl)
	classifier := mocks.NewMockClassifier(ctrl)
	generator := mocks.NewMockGenerator(ctrl)
	dir := t.TempDir()
	crops := []string{writeCrop(t, dir, "cropped_person_0.png", 50), writeCrop(t, dir, "cropped_person_1.png", 200)}

	cropper.EXPECT().Crop(gomock.Any(), "scene.png", dir).Return(crops, nil)
	classifier.EXPECT().Labels().Return([]string{"long_hair", "blonde_hair", "blue_eyes"}).AnyTimes()
	classifier.EXPECT().Infer(gomock.Any(), gomock.Any()).Return([]float64{0.8, 0.3, 0.2}, nil).Times(2)
	generator.EXPECT().Answer(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ image.Image, prompt string) (string, error) {
			assert.Contains(t, prompt, "Hair: long_hair")
			return "Asian", nil
		}).Times(4)

	tg := tagger.New(classifier, types.Buckets{
		"Hair":      {"long_hair", "blonde_hair"},
		"Eye Color": {"blue_eyes"},
	}, nil)
	extractor := vlm.NewExtractor(generator, nil)

	p := New(cropper, tg, extractor, Options{Threshold: 0.5, CropDir: dir}, nil)
	result, err := p.Process(context.Background(), "scene.png")
	require.NoError(t, err)

	want := types.CharacterAttributes{
		"Hair":      "long_hair",
		"Eye Color": vlm.Unknown,
		"Ethnicity": "Asian",
	}
	assert.Equal(t, types.Result{crops[0]: want, crops[1]: want}, result)
}

func TestProcessCharacter_Cache(t *testing.T) {
	ctrl := gomock.NewController(t)
	tg := mocks.NewMockTagger(ctrl)
	extractor := mocks.NewMockExtractor(ctrl)
	resultCache := mocks.NewMockResultCache(ctrl)
	crop := writeCrop(t, t.TempDir(), "c.png", 77)

	data, err := os.ReadFile(crop)
	require.NoError(t, err)
	key := cache.Key(data, 0.4, "fp")
	merged := types.CharacterAttributes{"Hair Color": "blonde_hair", "Eye Color": "blue"}

	gomock.InOrder(
		resultCache.EXPECT().Get(key).Return(nil, false, nil),
		resultCache.EXPECT().Put(key, merged).Return(nil),
		resultCache.EXPECT().Get(key).Return(merged, true, nil),
	)
	tg.EXPECT().PredictAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(sampleOutput(), nil).Times(1)
	extractor.EXPECT().ExtractAttributes(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(types.CharacterAttributes{"Eye Color": "blue"}, nil).Times(1)

	p := New(mocks.NewMockCropper(ctrl), tg, extractor, Options{Fingerprint: "fp", Cache: resultCache}, nil)

	first, err := p.ProcessCharacter(context.Background(), crop)
	require.NoError(t, err)
	second, err := p.ProcessCharacter(context.Background(), crop)
	require.NoError(t, err)
	assert.Equal(t, merged, first)
	assert.Equal(t, first, second)
}

func TestProcessCharacter_CacheFailureIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	tg := mocks.NewMockTagger(ctrl)
	extractor := mocks.NewMockExtractor(ctrl)
	resultCache := mocks.NewMockResultCache(ctrl)
	crop := writeCrop(t, t.TempDir(), "c.png", 77)

	resultCache.EXPECT().Get(gomock.Any()).Return(nil, false, errors.New("disk"))
	resultCache.EXPECT().Put(gomock.Any(), gomock.Any()).Return(errors.New("disk"))
	tg.EXPECT().PredictAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(sampleOutput(), nil)
	extractor.EXPECT().ExtractAttributes(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(types.CharacterAttributes{}, nil)

	p := New(mocks.NewMockCropper(ctrl), tg, extractor, Options{Cache: resultCache}, nil)
	attrs, err := p.ProcessCharacter(context.Background(), crop)
	require.NoError(t, err)
	assert.Equal(t, "blonde_hair", attrs["Hair Color"])
}

func TestProcessCharacter_ExtractorError(t *testing.T) {
	ctrl := gomock.NewController(t)
	tg := mocks.NewMockTagger(ctrl)
	extractor := mocks.NewMockExtractor(ctrl)
	crop := writeCrop(t, t.TempDir(), "c.png", 3)

	tg.EXPECT().PredictAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(sampleOutput(), nil)
	extractor.EXPECT().ExtractAttributes(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, context.DeadlineExceeded)

	p := New(mocks.NewMockCropper(ctrl), tg, extractor, Options{}, nil)
	_, err := p.ProcessCharacter(context.Background(), crop)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_Defaults(t *testing.T) {
	p := New(nil, nil, nil, Options{}, nil)
	opts := p.Options()
	assert.Equal(t, tagger.DefaultThreshold, opts.Threshold)
	assert.Equal(t, DefaultCropDir, opts.CropDir)
	assert.Equal(t, []string{"Ethnicity"}, opts.AlwaysAsk)
}

func TestWriteResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "result.json")
	result := types.Result{"out/cropped_person_0.jpg": {"Gender": "female"}}

	require.NoError(t, WriteResult(path, result))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got types.Result
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, result, got)
}
