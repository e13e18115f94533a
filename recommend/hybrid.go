package recommend

import (
	"context"
	"sort"

	"github.com/autofi/ai-engine/apierr"
	"github.com/autofi/ai-engine/models"
	"github.com/autofi/ai-engine/store"
	"golang.org/x/sync/errgroup"
)

// coldStartWeights implements the cold-start weight table from the
// component design: content/collaborative weights by interaction count k.
func coldStartWeights(k int) (content, collab float64, err error) {
	switch {
	case k == 0:
		return 0, 0, apierr.InsufficientData("insufficient interaction data")
	case k <= 3:
		return 0.9, 0.1, nil
	case k <= 10:
		return 0.7, 0.3, nil
	default:
		return 0.5, 0.5, nil
	}
}

// HybridRecommender combines content and collaborative scores with
// cold-start-dependent weights.
type HybridRecommender struct {
	registry *models.Registry
	users    *store.UserStore
	vehicles *store.VehicleStore
	content  *ContentRecommender
	collab   *CollabRecommender
}

func NewHybridRecommender(registry *models.Registry, users *store.UserStore, vehicles *store.VehicleStore, content *ContentRecommender, collab *CollabRecommender) *HybridRecommender {
	return &HybridRecommender{registry: registry, users: users, vehicles: vehicles, content: content, collab: collab}
}

// Recommend computes hybrid recommendations for userID.
func (r *HybridRecommender) Recommend(ctx context.Context, userID int64, n int) (Result, error) {
	interactions, err := r.users.InteractionsFor(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	contentWeight, collabWeight, err := coldStartWeights(len(interactions))
	if err != nil {
		return Result{}, err
	}

	// Step 1: concurrently ensure both models attempt to load. Triggering
	// Load is enough to start a background load if one isn't already
	// running; the actual score fetches below surface ModelNotAvailable
	// if a model isn't ready yet.
	var g errgroup.Group
	g.Go(func() error { _, _, loadErr := r.registry.Load(models.NameUserSimilarity); return loadErr })
	g.Go(func() error { _, _, loadErr := r.registry.Load(models.NameCollaborative); return loadErr })
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	fanN := n * 3

	collabScores, err := r.collab.Collaborative(ctx, userID, fanN)
	if err != nil {
		return Result{}, err
	}
	collabByID := make(map[int64]float64, len(collabScores))
	for _, s := range collabScores {
		collabByID[s.VehicleID] = s.Score
	}

	contentByID := make(map[int64]float64)
	for _, inter := range interactions {
		similar, err := r.content.SimilarScores(ctx, inter.VehicleID, fanN, models.NameUserSimilarity)
		if err != nil {
			// A single interaction's vehicle missing from the similarity
			// map must not abort the whole recommendation.
			continue
		}
		for _, sv := range similar {
			contentByID[sv.VehicleID] += sv.Score * inter.Weight
		}
	}

	if len(contentByID) > 0 {
		maxC := 0.0
		for _, v := range contentByID {
			if v > maxC {
				maxC = v
			}
		}
		if maxC == 0 {
			maxC = 1.0
		}
		for k, v := range contentByID {
			contentByID[k] = v / maxC
		}
	}

	union := make(map[int64]struct{}, len(contentByID)+len(collabByID))
	for id := range contentByID {
		union[id] = struct{}{}
	}
	for id := range collabByID {
		union[id] = struct{}{}
	}

	combined := make([]Scored, 0, len(union))
	for id := range union {
		score := contentWeight*contentByID[id] + collabWeight*collabByID[id]
		combined = append(combined, Scored{VehicleID: id, Score: score})
	}

	sort.Slice(combined, func(i, j int) bool {
		if combined[i].Score != combined[j].Score {
			return combined[i].Score > combined[j].Score
		}
		return combined[i].VehicleID < combined[j].VehicleID
	})
	if n > 0 && n < len(combined) {
		combined = combined[:n]
	}

	items := make([]Item, 0, len(combined))
	for _, s := range combined {
		v, ok, err := r.vehicles.GetByID(ctx, s.VehicleID)
		if err != nil || !ok {
			continue
		}
		items = append(items, Item{VehicleID: s.VehicleID, Score: s.Score, Features: v})
	}

	return Result{Items: items, ModelType: "hybrid"}, nil
}
