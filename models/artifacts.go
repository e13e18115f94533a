package models

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// SimilarityMap maps a vehicle id to its ordered top-K similar vehicles.
// Invariant (enforced by the offline trainer, checked defensively here):
// the self-id never appears in its own list, and each list is sorted by
// score descending.
type SimilarityMap map[int64][]SimilarityEntry

// SimilarityEntry is one (vehicle id, score) pair within a SimilarityMap
// list.
type SimilarityEntry struct {
	VehicleID int64   `json:"vehicle_id"`
	Score     float64 `json:"score"`
}

// CollabModel is the truncated-SVD factorization of the weighted
// user x vehicle interaction matrix: U (user-feature), V (vehicle-feature)
// and the row/column index that translates ids to matrix positions.
type CollabModel struct {
	UserFeatures    [][]float64 // U: rows indexed by UserRowIndex
	VehicleFeatures [][]float64 // V: rows indexed by VehicleColIndex (column order of M)
	UserRowIndex    map[int64]int
	VehicleIDs      []int64 // column order, parallel to VehicleFeatures rows
}

// FileLoaders builds the three Loader functions that deserialize the
// offline-trained artifacts from modelPath, matching the persisted
// artifact names in the external interfaces section
// (collaborative_model, similarity_topk_vehicle, similarity_topk_user).
func FileLoaders(modelPath string) map[string]Loader {
	return map[string]Loader{
		NameCollaborative: func(ctx context.Context) (any, error) {
			var m CollabModel
			if err := decodeGob(filepath.Join(modelPath, "collaborative_model.gob"), &m); err != nil {
				return nil, err
			}
			return &m, nil
		},
		NameVehicleSimilarity: func(ctx context.Context) (any, error) {
			var m SimilarityMap
			if err := decodeGob(filepath.Join(modelPath, "similarity_topk_vehicle.gob"), &m); err != nil {
				return nil, err
			}
			return m, nil
		},
		NameUserSimilarity: func(ctx context.Context) (any, error) {
			var m SimilarityMap
			if err := decodeGob(filepath.Join(modelPath, "similarity_topk_user.gob"), &m); err != nil {
				return nil, err
			}
			return m, nil
		},
	}
}

func decodeGob(path string, dst any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
