// Package modeljson cleans up and decodes the loosely formatted JSON that
// vision models return.
package modeljson

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/menta2k/character-extractor/pkg/types"
)

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// Sanitize removes code fences, comments, and trailing commas from a JSON response
func Sanitize(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	return strings.TrimSpace(raw)
}

// ErrMalformed is returned when an answer contains JSON that does not decode,
// typically because the model's output was cut off
var ErrMalformed = errors.New("malformed detection JSON")

// ParseDetections decodes a detection answer. Both {"detections":[...]} and a
// bare [...] array are accepted. Answers with no JSON in them decode to an
// empty result, the model is then treated as having found nothing. JSON that
// starts but does not decode yields ErrMalformed.
func ParseDetections(raw string) (*types.DetectionResult, error) {
	raw = Sanitize(raw)

	objStart := strings.Index(raw, "{")
	arrStart := strings.Index(raw, "[")
	if objStart < 0 && arrStart < 0 {
		return &types.DetectionResult{}, nil
	}

	// Bare array answer
	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		end := strings.LastIndex(raw, "]")
		if end > arrStart {
			var dets []types.Detection
			if err := json.Unmarshal([]byte(raw[arrStart:end+1]), &dets); err == nil {
				return &types.DetectionResult{Detections: dets}, nil
			}
		}
		if objStart < 0 {
			return nil, fmt.Errorf("%w: unterminated array", ErrMalformed)
		}
	}

	end := strings.LastIndex(raw, "}")
	if end <= objStart {
		return nil, fmt.Errorf("%w: unterminated object", ErrMalformed)
	}

	var result types.DetectionResult
	if err := json.Unmarshal([]byte(raw[objStart:end+1]), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &result, nil
}
