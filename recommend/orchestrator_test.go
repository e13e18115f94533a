package recommend_test

import (
	"context"
	"testing"

	"github.com/autofi/ai-engine/models"
	"github.com/autofi/ai-engine/recommend"
	"github.com/autofi/ai-engine/store"
)

func TestOrchestratorRecommendUnknownUser(t *testing.T) {
	users := store.NewUserStore(nil)
	users.SeedExists(1, 2, 3)
	vehicles := store.NewVehicleStore(nil, nil, "", 0)
	reg := newTestRegistry(nil)
	content := recommend.NewContentRecommender(reg, vehicles, nopCache())
	collab := recommend.NewCollabRecommender(reg)
	hybrid := recommend.NewHybridRecommender(reg, users, vehicles, content, collab)
	orch := recommend.NewOrchestrator(users, vehicles, nopCache(), content, hybrid, collab)

	_, err := orch.Recommend(context.Background(), 999, 5, recommend.StrategyHybrid)
	if err == nil {
		t.Fatalf("expected not-found error for an unseeded user id")
	}
}

func TestOrchestratorContentStrategySeedsFromTopInteraction(t *testing.T) {
	users := store.NewUserStore(nil)
	users.SeedExists(7)
	users.SeedInteractions(7, []store.Interaction{
		{VehicleID: 10, Weight: 1},
		{VehicleID: 11, Weight: 5},
	})
	vehicles := store.NewVehicleStore(nil, nil, "", 0)
	seedVehicles(vehicles, 22)
	reg := newTestRegistry(map[string]any{
		models.NameVehicleSimilarity: models.SimilarityMap{
			11: {{VehicleID: 22, Score: 0.9}},
		},
	})
	content := recommend.NewContentRecommender(reg, vehicles, nopCache())
	collab := recommend.NewCollabRecommender(reg)
	hybrid := recommend.NewHybridRecommender(reg, users, vehicles, content, collab)
	orch := recommend.NewOrchestrator(users, vehicles, nopCache(), content, hybrid, collab)

	result, err := orch.Recommend(context.Background(), 7, 5, recommend.StrategyContent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].VehicleID != 22 {
		t.Fatalf("expected similarity seeded from vehicle 11 (highest weight), got %v", result.Items)
	}
}

func TestOrchestratorContentStrategyNoInteractionsFailsInsufficientData(t *testing.T) {
	users := store.NewUserStore(nil)
	users.SeedExists(8)
	vehicles := store.NewVehicleStore(nil, nil, "", 0)
	reg := newTestRegistry(nil)
	content := recommend.NewContentRecommender(reg, vehicles, nopCache())
	collab := recommend.NewCollabRecommender(reg)
	hybrid := recommend.NewHybridRecommender(reg, users, vehicles, content, collab)
	orch := recommend.NewOrchestrator(users, vehicles, nopCache(), content, hybrid, collab)

	_, err := orch.Recommend(context.Background(), 8, 5, recommend.StrategyContent)
	if err == nil {
		t.Fatalf("expected InsufficientData error for a user with no interactions")
	}
}

func TestOrchestratorSimilarUnknownVehicle(t *testing.T) {
	users := store.NewUserStore(nil)
	vehicles := store.NewVehicleStore(nil, nil, "", 0)
	seedVehicles(vehicles, 22)
	reg := newTestRegistry(map[string]any{models.NameVehicleSimilarity: models.SimilarityMap{}})
	content := recommend.NewContentRecommender(reg, vehicles, nopCache())
	collab := recommend.NewCollabRecommender(reg)
	hybrid := recommend.NewHybridRecommender(reg, users, vehicles, content, collab)
	orch := recommend.NewOrchestrator(users, vehicles, nopCache(), content, hybrid, collab)

	_, err := orch.Similar(context.Background(), 555, 3)
	if err == nil {
		t.Fatalf("expected not-found error for an unseeded vehicle id")
	}
}
