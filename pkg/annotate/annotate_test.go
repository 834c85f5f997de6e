package annotate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/character-extractor/pkg/types"
)

var testBuckets = types.Buckets{
	"Eye Color":  {"blue eyes", "red eyes"},
	"Hair Color": {"blonde hair", "black hair"},
	"Dress":      {"bikini", "school uniform"},
}

func TestAnnotate(t *testing.T) {
	dataset := map[string]DatasetEntry{
		"a.jpg":      {Tags: "1girl, angry, bikini, blue eyes, red eyes, ", TrainResolution: json.RawMessage(`[512,768]`)},
		"couple.jpg": {Tags: "1boy, 1girl, smile"},
		"group.jpg":  {Tags: "2girls, blonde hair"},
		"b.jpg":      {Tags: "solo"},
	}

	got := Annotate(dataset, testBuckets)

	require.Len(t, got, 2)
	a := got["a.jpg"]
	assert.JSONEq(t, `[512,768]`, string(a.TrainResolution))
	assert.Equal(t, []string{"blue eyes", "red eyes"}, a.Attributes["Eye Color"])
	assert.Equal(t, []string{"bikini"}, a.Attributes["Dress"])
	assert.Nil(t, a.Attributes["Hair Color"])
	assert.Contains(t, a.Attributes, "Hair Color")

	b := got["b.jpg"]
	assert.Len(t, b.Attributes, 3)
	for _, tags := range b.Attributes {
		assert.Nil(t, tags)
	}
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"1girl", "long hair"}, ParseTags(" 1girl ,, long hair,"))
	assert.Empty(t, ParseTags(""))
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "dataset.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"x.png": {"tags": "black hair", "train_resolution": [1, 2]}}`), 0o644))

	dataset, err := LoadDataset(in)
	require.NoError(t, err)
	require.Contains(t, dataset, "x.png")

	out := filepath.Join(dir, "annotated.json")
	require.NoError(t, Save(out, Annotate(dataset, testBuckets)))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"x.png": {
			"train_resolution": [1, 2],
			"attributes": {"Eye Color": null, "Hair Color": ["black hair"], "Dress": null}
		}
	}`, string(data))

	_, err = LoadDataset(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
