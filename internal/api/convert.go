package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-thermal/internal/models"
)

// SnapshotStruct converts a snapshot into its google.protobuf.Struct form,
// field names matching the JSON surfaces.
func SnapshotStruct(snap models.Snapshot) (*structpb.Struct, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode snapshot fields: %w", err)
	}
	return structpb.NewStruct(fields)
}

// SnapshotFromStruct is the inverse of SnapshotStruct.
func SnapshotFromStruct(st *structpb.Struct) (models.Snapshot, error) {
	if st == nil {
		return models.Snapshot{}, fmt.Errorf("snapshot struct is nil")
	}
	data, err := json.Marshal(st.AsMap())
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("marshal snapshot struct: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
