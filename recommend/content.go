package recommend

import (
	"context"

	"github.com/autofi/ai-engine/apierr"
	"github.com/autofi/ai-engine/caching"
	"github.com/autofi/ai-engine/models"
	"github.com/autofi/ai-engine/store"
)

// ContentRecommender answers "vehicles similar to this one" from a
// precomputed top-K similarity map.
type ContentRecommender struct {
	registry *models.Registry
	vehicles *store.VehicleStore
	cache    *caching.Facade
}

func NewContentRecommender(registry *models.Registry, vehicles *store.VehicleStore, cache *caching.Facade) *ContentRecommender {
	return &ContentRecommender{registry: registry, vehicles: vehicles, cache: cache}
}

// Similar returns the top-n enriched similar vehicles for vehicleID,
// sourced from the vehicle_similarity map. Missing-vehicle ids from the
// similarity list are skipped silently; the requested vehicleID itself
// must be present in the map or this fails with NotFound.
func (r *ContentRecommender) Similar(ctx context.Context, vehicleID int64, n int) (Result, error) {
	var cached []Item
	if r.cache.GetVehicleSimilar(ctx, vehicleID, n, &cached) {
		return Result{Items: cached, ModelType: "content"}, nil
	}

	scores, err := r.similarScores(ctx, vehicleID, n, models.NameVehicleSimilarity)
	if err != nil {
		return Result{}, err
	}

	items := r.enrich(ctx, scores)
	r.cache.SetVehicleSimilar(ctx, vehicleID, n, items)
	return Result{Items: items, ModelType: "content"}, nil
}

// SimilarScores returns raw (id, score) pairs without enrichment, used by
// the hybrid path against the user_similarity map.
func (r *ContentRecommender) SimilarScores(ctx context.Context, vehicleID int64, n int, mapName string) ([]Scored, error) {
	return r.similarScores(ctx, vehicleID, n, mapName)
}

func (r *ContentRecommender) similarScores(ctx context.Context, vehicleID int64, n int, mapName string) ([]Scored, error) {
	artifact, ready, err := r.registry.Load(mapName)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, apierr.ModelNotAvailable(mapName + " is loading, try again later")
	}
	simMap, ok := artifact.(models.SimilarityMap)
	if !ok {
		return nil, apierr.ModelNotAvailable(mapName + " is not available or corrupted")
	}

	entries, ok := simMap[vehicleID]
	if !ok {
		return nil, apierr.NotFound("vehicle not found in similarity map")
	}
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}

	out := make([]Scored, len(entries))
	for i, e := range entries {
		out[i] = Scored{VehicleID: e.VehicleID, Score: e.Score}
	}
	return out, nil
}

func (r *ContentRecommender) enrich(ctx context.Context, scores []Scored) []Item {
	items := make([]Item, 0, len(scores))
	for _, s := range scores {
		v, ok, err := r.vehicles.GetByID(ctx, s.VehicleID)
		if err != nil || !ok {
			continue
		}
		items = append(items, Item{VehicleID: s.VehicleID, Score: s.Score, Features: v})
	}
	return items
}
