package recommend

import (
	"context"
	"sort"

	"github.com/autofi/ai-engine/apierr"
	"github.com/autofi/ai-engine/models"
	"gonum.org/v1/gonum/floats"
)

// CollabRecommender produces a dense vehicle-score vector from the
// collaborative model, normalized to [0,1].
type CollabRecommender struct {
	registry *models.Registry
}

func NewCollabRecommender(registry *models.Registry) *CollabRecommender {
	return &CollabRecommender{registry: registry}
}

// Collaborative returns the top-n vehicle scores for userID.
func (r *CollabRecommender) Collaborative(ctx context.Context, userID int64, n int) ([]Scored, error) {
	artifact, ready, err := r.registry.Load(models.NameCollaborative)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, apierr.ModelNotAvailable("collaborative model is loading, try again later")
	}
	model, ok := artifact.(*models.CollabModel)
	if !ok || model.UserRowIndex == nil || model.VehicleFeatures == nil {
		return nil, apierr.ModelNotAvailable("collaborative model is not available or corrupted")
	}

	row, ok := model.UserRowIndex[userID]
	if !ok {
		return nil, apierr.NotFound("user not found in collaborative model")
	}
	userVec := model.UserFeatures[row]

	scores := make([]float64, len(model.VehicleIDs))
	for j, vehicleVec := range model.VehicleFeatures {
		scores[j] = floats.Dot(vehicleVec, userVec)
	}

	min, max := minMax(scores)
	denom := max - min
	if denom == 0 {
		denom = 1.0
	}

	out := make([]Scored, len(model.VehicleIDs))
	for j, vid := range model.VehicleIDs {
		out[j] = Scored{VehicleID: vid, Score: (scores[j] - min) / denom}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].VehicleID < out[j].VehicleID
	})

	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out, nil
}

func minMax(vals []float64) (min, max float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	min, max = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
