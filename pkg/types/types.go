package types

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Detection is a single object found by the detection model
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// DetectionResult contains the complete detection output from the vision model
type DetectionResult struct {
	Detections []Detection `json:"detections"`
}

// Buckets maps a bucket name (e.g. "Hair Style") to the tags it recognizes
type Buckets map[string][]string

// Prediction maps a tag to its probability in [0,1]
type Prediction map[string]float64

// TagScore is a tag paired with the classifier's confidence
type TagScore struct {
	Tag   string  `json:"tag"`
	Score float64 `json:"score"`
}

// CategorizedTags maps a bucket name to the thresholded tags found in it
type CategorizedTags map[string][]TagScore

// BestCandidates maps a bucket name to its highest scoring tag, threshold ignored
type BestCandidates map[string]TagScore

// TaggerOutput is the result of a single bucketed classification pass
type TaggerOutput struct {
	CategorizedTags CategorizedTags `json:"categorized_tags"`
	BestCandidates  BestCandidates  `json:"best_candidates"`
}

// CharacterAttributes is the flat attribute map produced for one character
type CharacterAttributes map[string]string

// Result maps a character crop path to its attributes
type Result map[string]CharacterAttributes

// ImageOptions controls how images are encoded before being sent to a model
type ImageOptions struct {
	Format  string
	MaxDim  int
	Quality int
}
