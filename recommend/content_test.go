package recommend_test

import (
	"context"
	"testing"

	"github.com/autofi/ai-engine/caching"
	"github.com/autofi/ai-engine/models"
	"github.com/autofi/ai-engine/recommend"
	"github.com/autofi/ai-engine/store"
	"github.com/rs/zerolog"
)

func newTestRegistry(artifacts map[string]any) *models.Registry {
	return models.NewPreloaded(zerolog.Nop(), nil, artifacts)
}

func TestContentRecommenderSimilar(t *testing.T) {
	simMap := models.SimilarityMap{
		10: {
			{VehicleID: 22, Score: 0.91},
			{VehicleID: 7, Score: 0.88},
			{VehicleID: 3, Score: 0.70},
		},
	}
	reg := newTestRegistry(map[string]any{models.NameVehicleSimilarity: simMap})

	vehicles := store.NewVehicleStore(nil, nil, "", 0)
	seedVehicles(vehicles, 22, 7, 3)

	rec := recommend.NewContentRecommender(reg, vehicles, nopCache())

	result, err := rec.Similar(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected exactly 2 entries, got %d", len(result.Items))
	}
	if result.Items[0].VehicleID != 22 || result.Items[1].VehicleID != 7 {
		t.Fatalf("expected ids [22,7] in order, got %v", result.Items)
	}
	if result.Items[0].Score != 0.91 || result.Items[1].Score != 0.88 {
		t.Fatalf("expected scores [0.91,0.88], got %v", result.Items)
	}
}

func TestContentRecommenderVehicleNotFound(t *testing.T) {
	reg := newTestRegistry(map[string]any{models.NameVehicleSimilarity: models.SimilarityMap{}})
	vehicles := store.NewVehicleStore(nil, nil, "", 0)
	rec := recommend.NewContentRecommender(reg, vehicles, nopCache())

	_, err := rec.Similar(context.Background(), 999, 2)
	if err == nil {
		t.Fatalf("expected error for vehicle absent from similarity map")
	}
}

// seedVehicles injects vehicles directly into a VehicleStore's in-memory
// index for tests, bypassing the DB/cache load path.
func seedVehicles(vs *store.VehicleStore, ids ...int64) {
	for _, id := range ids {
		vs.Seed(store.Vehicle{ID: id, Make: "Toyota", Model: "Camry", Year: 2020})
	}
}

func nopCache() *caching.Facade {
	return caching.New(nil, zerolog.Nop())
}
