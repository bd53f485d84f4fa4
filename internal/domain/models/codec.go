package models

import (
	"encoding/json"
	"fmt"

	"github.com/trebuchet-org/catapult/internal/domain"
)

// MarshalRecord encodes a record the way every store persists it
func MarshalRecord(r *Record) ([]byte, error) {
	if r.Version == 0 {
		r.Version = RecordVersion
	}
	return json.MarshalIndent(r, "", "  ")
}

// UnmarshalRecord decodes a persisted record, rejecting versions this build
// does not understand
func UnmarshalRecord(data []byte) (*Record, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	if probe.Version < 1 || probe.Version > RecordVersion {
		return nil, fmt.Errorf("%w: unsupported record version %d", domain.ErrRecordMismatch, probe.Version)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	if r.Steps == nil {
		r.Steps = make(map[string]*StepRecord)
	}
	for name, sr := range r.Steps {
		if sr.Name == "" {
			sr.Name = name
		}
	}
	return &r, nil
}
