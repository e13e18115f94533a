package recommend

import (
	"context"
	"sort"

	"github.com/autofi/ai-engine/apierr"
	"github.com/autofi/ai-engine/caching"
	"github.com/autofi/ai-engine/store"
)

// strategyFunc computes a Result for one user under one strategy.
type strategyFunc func(ctx context.Context, userID int64, n int) (Result, error)

// Orchestrator is the entry point for recommendation requests: it
// verifies the subject exists, memoizes per-(user, n, strategy) results,
// and dispatches to the right recommender.
//
// Dispatch uses a typed struct-of-funcs built at construction time rather
// than a string-keyed container, so there is no runtime resolution by
// name and no dependency cycle between a factory and the registry that
// owns it.
type Orchestrator struct {
	users    *store.UserStore
	vehicles *store.VehicleStore
	cache    *caching.Facade
	content  *ContentRecommender
	hybrid   *HybridRecommender
	collab   *CollabRecommender

	strategies map[Strategy]strategyFunc
}

func NewOrchestrator(users *store.UserStore, vehicles *store.VehicleStore, cache *caching.Facade, content *ContentRecommender, hybrid *HybridRecommender, collab *CollabRecommender) *Orchestrator {
	o := &Orchestrator{
		users:    users,
		vehicles: vehicles,
		cache:    cache,
		content:  content,
		hybrid:   hybrid,
		collab:   collab,
	}
	o.strategies = map[Strategy]strategyFunc{
		StrategyHybrid: hybrid.Recommend,
		StrategyCollaborative: func(ctx context.Context, userID int64, n int) (Result, error) {
			scores, err := collab.Collaborative(ctx, userID, n)
			if err != nil {
				return Result{}, err
			}
			return enrichScores(ctx, vehicles, scores, "collaborative"), nil
		},
		StrategyContent: func(ctx context.Context, userID int64, n int) (Result, error) {
			interactions, err := users.InteractionsFor(ctx, userID)
			if err != nil {
				return Result{}, err
			}
			if len(interactions) == 0 {
				return Result{}, apierr.InsufficientData("insufficient interaction data")
			}
			sort.Slice(interactions, func(i, j int) bool {
				if interactions[i].Weight != interactions[j].Weight {
					return interactions[i].Weight > interactions[j].Weight
				}
				return interactions[i].VehicleID < interactions[j].VehicleID
			})
			result, err := content.Similar(ctx, interactions[0].VehicleID, n)
			if err != nil {
				return Result{}, err
			}
			result.ModelType = "content"
			return result, nil
		},
	}
	return o
}

func enrichScores(ctx context.Context, vehicles *store.VehicleStore, scores []Scored, modelType string) Result {
	items := make([]Item, 0, len(scores))
	for _, s := range scores {
		v, ok, err := vehicles.GetByID(ctx, s.VehicleID)
		if err != nil || !ok {
			continue
		}
		items = append(items, Item{VehicleID: s.VehicleID, Score: s.Score, Features: v})
	}
	return Result{Items: items, ModelType: modelType}
}

// Recommend is the per-user entry point.
func (o *Orchestrator) Recommend(ctx context.Context, userID int64, n int, strategy Strategy) (Result, error) {
	exists, err := o.users.Exists(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return Result{}, apierr.NotFound("user not found")
	}

	var cached Result
	if o.cache.GetUserRecommendations(ctx, userID, n, string(strategy), &cached) {
		return cached, nil
	}

	fn, ok := o.strategies[strategy]
	if !ok {
		fn = o.hybrid.Recommend
		strategy = StrategyHybrid
	}

	result, err := fn(ctx, userID, n)
	if err != nil {
		return Result{}, err
	}

	o.cache.SetUserRecommendations(ctx, userID, n, string(strategy), result)
	return result, nil
}

// Similar is the per-vehicle entry point.
func (o *Orchestrator) Similar(ctx context.Context, vehicleID int64, n int) (Result, error) {
	exists, err := o.vehicles.Exists(ctx, vehicleID)
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return Result{}, apierr.NotFound("vehicle not found")
	}
	return o.content.Similar(ctx, vehicleID, n)
}
