package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/randalmurphal/formstate/pkg/formstate/state"
	"github.com/randalmurphal/formstate/pkg/formstate/validator"
)

// Version is the current encoding version.
const Version = 1

// Snapshot is a point-in-time copy of a form.
type Snapshot struct {
	Version   int       `json:"version"`
	FormID    string    `json:"form_id"`
	Timestamp time.Time `json:"timestamp"`

	// Data is the form data tree; Initial is the baseline it is compared
	// against for dirtiness.
	Data    map[string]any `json:"data"`
	Initial map[string]any `json:"initial"`

	States     []state.State               `json:"states"`
	Fields     map[string]Field            `json:"fields"`
	Validation map[string]validator.Result `json:"validation,omitempty"`
}

// Field is a field's part of a snapshot.
type Field struct {
	Value        any               `json:"value"`
	InitialValue any               `json:"initial_value"`
	States       []state.State     `json:"states"`
	Validation   *validator.Result `json:"validation,omitempty"`
}

// Marshal encodes the snapshot as JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal decodes a snapshot, rejecting other format versions.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, s.Version, Version)
	}
	return &s, nil
}
