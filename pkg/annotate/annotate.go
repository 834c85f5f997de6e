// Package annotate labels a tagged training dataset with the buckets its
// tags fall into.
package annotate

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/menta2k/character-extractor/pkg/types"
)

// coupleTags marks images pairing one boy with one girl
const coupleTags = "1boy, 1girl"

// MultiPersonTags exclude an image from annotation
var MultiPersonTags = []string{
	"2boys", "2girls", "multiple boys", "multiple girls",
	"3boys", "3girls", "6+boys", "6+girls",
}

// DatasetEntry is one image of a tagged dataset
type DatasetEntry struct {
	Tags            string          `json:"tags"`
	TrainResolution json.RawMessage `json:"train_resolution,omitempty"`
}

// Annotation holds, per bucket, the sorted tags the image matched. A bucket
// with no match is nil and encodes as null.
type Annotation struct {
	TrainResolution json.RawMessage     `json:"train_resolution,omitempty"`
	Attributes      map[string][]string `json:"attributes"`
}

// Annotate files every single-character image of the dataset into buckets.
// Images tagged with several characters are left out.
func Annotate(dataset map[string]DatasetEntry, buckets types.Buckets) map[string]Annotation {
	annotated := make(map[string]Annotation, len(dataset))

	for path, entry := range dataset {
		if strings.Contains(entry.Tags, coupleTags) {
			continue
		}
		tags := ParseTags(entry.Tags)
		if lo.Some(tags, MultiPersonTags) {
			continue
		}

		attrs := make(map[string][]string, len(buckets))
		for name, bucketTags := range buckets {
			matched := lo.Uniq(lo.Intersect(tags, bucketTags))
			if len(matched) == 0 {
				attrs[name] = nil
				continue
			}
			sort.Strings(matched)
			attrs[name] = matched
		}

		annotated[path] = Annotation{
			TrainResolution: entry.TrainResolution,
			Attributes:      attrs,
		}
	}
	return annotated
}

// ParseTags splits a comma separated tag string, dropping blanks
func ParseTags(s string) []string {
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// LoadDataset reads a dataset JSON file keyed by image path
func LoadDataset(path string) (map[string]DatasetEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	var dataset map[string]DatasetEntry
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return dataset, nil
}

// Save writes annotations as indented JSON
func Save(path string, annotated map[string]Annotation) error {
	data, err := json.MarshalIndent(annotated, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode annotations: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
