package jobs

import (
	"encoding/json"
	"fmt"
)

// ApplyPatch overlays json-keyed fields onto a copy of j.
// Identity fields (id, pipeline, createdAt) never change.
func ApplyPatch(j Job, fields map[string]interface{}) (Job, error) {
	raw, err := json.Marshal(j)
	if err != nil {
		return j, fmt.Errorf("marshal job: %w", err)
	}
	doc := map[string]interface{}{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return j, fmt.Errorf("unmarshal job: %w", err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	if raw, err = json.Marshal(doc); err != nil {
		return j, fmt.Errorf("marshal patch: %w", err)
	}

	var out Job
	if err := json.Unmarshal(raw, &out); err != nil {
		return j, fmt.Errorf("apply patch: %w", err)
	}
	out.Id = j.Id
	out.Pipeline = j.Pipeline
	out.CreatedAt = j.CreatedAt
	return out, nil
}
