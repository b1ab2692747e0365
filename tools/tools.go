// Package tools provides the vision tools the reasoning engine can
// invoke: two-step detect/confirm segmentation and a one-shot variant.
package tools

import (
	"encoding/json"

	"github.com/fwojciec/segchat"
)

// Tool names form a closed set; dispatch is a static switch, not
// reflection.
const (
	ToolDetect           = "detect"
	ToolSegmentConfirmed = "segment_confirmed"
	ToolDetectAndSegment = "detect_and_segment"
)

// Definitions returns the tool schema presented to the reasoning engine.
func Definitions() []segchat.Tool {
	return []segchat.Tool{
		{
			Name:        ToolDetect,
			Description: "Detect the described objects in the session image and show a bounding-box preview (step one). Caches the result so the user can confirm which objects to segment.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"prompt": {
						"type": "string",
						"description": "Description of the objects to detect, e.g. 'crane arm'"
					}
				},
				"required": ["prompt"]
			}`),
		},
		{
			Name:        ToolSegmentConfirmed,
			Description: "Precisely segment previously detected objects (step two, after user confirmation). Requires a prior detect in this session.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"object_indices": {
						"type": "array",
						"items": {"type": "integer"},
						"description": "Indices of the detected objects to segment, e.g. [0, 2]. Omit to segment all detected objects."
					}
				}
			}`),
		},
		{
			Name:        ToolDetectAndSegment,
			Description: "Detect and precisely segment the described objects in one call, skipping the preview step.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"prompt": {
						"type": "string",
						"description": "Description of the objects to detect and segment"
					}
				},
				"required": ["prompt"]
			}`),
		},
	}
}
