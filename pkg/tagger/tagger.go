// Package tagger turns raw multi-label classifier output into named attribute
// buckets.
//
// A bucket configuration maps bucket names such as "Hair Color" to the tags
// that describe them. Each classification pass produces two views:
//
//   - categorized tags: every tag at or above the threshold, filed under each
//     bucket that lists it;
//   - best candidates: the single most probable tag of every bucket, with the
//     threshold ignored, used as a best guess when nothing passes.
package tagger

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/menta2k/character-extractor/pkg/types"
)

// DefaultThreshold is the score a tag needs to count as present
const DefaultThreshold = 0.4

var (
	// ErrNoLabels means the classifier has no usable label vocabulary
	ErrNoLabels = errors.New("tagger: no label vocabulary loaded")
	// ErrNoBuckets means the tagger was built without a bucket configuration
	ErrNoBuckets = errors.New("tagger: no bucket configuration loaded")
)

// Tagger runs a classifier and files its output into buckets
type Tagger struct {
	classifier Classifier
	buckets    types.Buckets
	names      []string            // bucket names, sorted
	index      map[string][]string // tag -> buckets containing it, sorted
	logger     *zap.Logger
}

// New creates a Tagger. buckets may be empty but a nil configuration makes
// PredictAll fail with ErrNoBuckets.
func New(classifier Classifier, buckets types.Buckets, logger *zap.Logger) *Tagger {
	if logger == nil {
		logger = zap.NewNop()
	}

	names := lo.Keys(buckets)
	sort.Strings(names)

	index := make(map[string][]string)
	for _, name := range names {
		for _, tag := range lo.Uniq(buckets[name]) {
			index[tag] = append(index[tag], name)
		}
	}

	return &Tagger{
		classifier: classifier,
		buckets:    buckets,
		names:      names,
		index:      index,
		logger:     logger,
	}
}

// PredictTags runs inference once and returns the tags scoring at least
// threshold, highest score first.
func (t *Tagger) PredictTags(ctx context.Context, img image.Image, threshold float64) ([]types.TagScore, error) {
	probs, err := t.infer(ctx, img)
	if err != nil {
		return nil, err
	}
	return t.threshold(probs, threshold), nil
}

// FindTagsInBuckets files each tag under every bucket that lists it. Buckets
// without a match are left out of the result.
func (t *Tagger) FindTagsInBuckets(tags []types.TagScore) types.CategorizedTags {
	categorized := types.CategorizedTags{}
	for _, ts := range tags {
		for _, bucket := range t.index[ts.Tag] {
			categorized[bucket] = append(categorized[bucket], ts)
		}
	}
	return categorized
}

// FindBestCandidates picks, for each bucket, the tag with the highest
// probability in the full unthresholded vector. Equal scores go to the
// lexicographically smallest tag. Buckets sharing no tag with the label
// vocabulary are omitted.
func (t *Tagger) FindBestCandidates(probs []float64) types.BestCandidates {
	labels := t.classifier.Labels()
	labelProbs := make(map[string]float64, len(labels))
	for i, label := range labels {
		if i < len(probs) {
			labelProbs[label] = probs[i]
		}
	}

	best := types.BestCandidates{}
	for _, name := range t.names {
		var candidate types.TagScore
		found := false
		for _, tag := range t.buckets[name] {
			score, ok := labelProbs[tag]
			if !ok {
				continue
			}
			if !found || score > candidate.Score || (score == candidate.Score && tag < candidate.Tag) {
				candidate = types.TagScore{Tag: tag, Score: score}
				found = true
			}
		}
		if found {
			best[name] = candidate
		}
	}
	return best
}

// PredictAll runs inference once and derives both the thresholded bucket
// view and the per-bucket best candidates from it.
func (t *Tagger) PredictAll(ctx context.Context, img image.Image, threshold float64) (types.TaggerOutput, error) {
	if t.buckets == nil {
		return types.TaggerOutput{}, ErrNoBuckets
	}

	probs, err := t.infer(ctx, img)
	if err != nil {
		return types.TaggerOutput{}, err
	}

	out := types.TaggerOutput{
		CategorizedTags: t.FindTagsInBuckets(t.threshold(probs, threshold)),
		BestCandidates:  t.FindBestCandidates(probs),
	}
	t.logger.Debug("tags predicted",
		zap.Float64("threshold", threshold),
		zap.Int("categorized_buckets", len(out.CategorizedTags)),
		zap.Int("candidate_buckets", len(out.BestCandidates)),
	)
	return out, nil
}

func (t *Tagger) infer(ctx context.Context, img image.Image) ([]float64, error) {
	labels := t.classifier.Labels()
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}

	probs, err := t.classifier.Infer(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("classifier inference failed: %w", err)
	}
	if len(probs) != len(labels) {
		return nil, fmt.Errorf("%w: %d labels but %d scores", ErrNoLabels, len(labels), len(probs))
	}
	return probs, nil
}

// threshold keeps scores >= threshold ordered by descending score, ties in
// label order
func (t *Tagger) threshold(probs []float64, threshold float64) []types.TagScore {
	labels := t.classifier.Labels()

	indices := make([]int, 0, len(probs))
	for i, p := range probs {
		if p >= threshold {
			indices = append(indices, i)
		}
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return probs[indices[a]] > probs[indices[b]]
	})

	return lo.Map(indices, func(i int, _ int) types.TagScore {
		return types.TagScore{Tag: labels[i], Score: probs[i]}
	})
}

// FormatContext renders categorized tags as "Bucket: tag1, tag2, Other: tag3",
// buckets in name order. The VLM receives it as prior knowledge.
func FormatContext(categorized types.CategorizedTags) string {
	names := lo.Keys(categorized)
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		tags := lo.Map(categorized[name], func(ts types.TagScore, _ int) string { return ts.Tag })
		parts = append(parts, name+": "+strings.Join(tags, ", "))
	}
	return strings.Join(parts, ", ")
}

// Attributes flattens categorized tags into bucket -> "tag1, tag2"
func Attributes(categorized types.CategorizedTags) types.CharacterAttributes {
	attrs := types.CharacterAttributes{}
	for name, tags := range categorized {
		attrs[name] = strings.Join(lo.Map(tags, func(ts types.TagScore, _ int) string { return ts.Tag }), ", ")
	}
	return attrs
}

// LowConfidenceBuckets lists, in name order, the buckets whose best
// candidate scores below threshold
func LowConfidenceBuckets(best types.BestCandidates, threshold float64) []string {
	low := lo.Keys(lo.PickBy(best, func(_ string, ts types.TagScore) bool {
		return ts.Score < threshold
	}))
	sort.Strings(low)
	return low
}
