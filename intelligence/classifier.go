// Package intelligence classifies natural-language assistant queries by
// intent (QueryClassifier) and screens them for unsafe content before
// they ever reach the SQL layer.
package intelligence

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/autofi/ai-engine/caching"
	"github.com/rs/zerolog"
)

// Scores maps each category to its cosine-similarity confidence, rescaled
// into [0, 1].
type Scores map[Category]float64

// Classification is the result of classifying one query.
type Classification struct {
	Category Category
	Scores   Scores
}

// QueryClassifier scores a query against a small bank of example
// questions per category and returns the best match, or CategoryUnsafe if
// the safety gate trips first.
type QueryClassifier struct {
	embedder Embedder
	cache    *caching.Facade
	logger   zerolog.Logger

	patternEmbeddings map[Category][][]float64
}

// NewClassifier embeds every example query once at construction time,
// using the category-embedding cache slot so a restart doesn't re-pay the
// embedding cost for a bank that never changes.
func NewClassifier(ctx context.Context, embedder Embedder, cache *caching.Facade, logger zerolog.Logger) (*QueryClassifier, error) {
	c := &QueryClassifier{
		embedder:          embedder,
		cache:             cache,
		logger:            logger.With().Str("component", "query_classifier").Logger(),
		patternEmbeddings: make(map[Category][][]float64, len(queryPatterns)),
	}

	for category, examples := range queryPatterns {
		if embs, ok := cache.GetCategoryEmbeddings(ctx, string(category)); ok && len(embs) == len(examples) {
			c.patternEmbeddings[category] = embs
			continue
		}
		embs := make([][]float64, 0, len(examples))
		for _, ex := range examples {
			emb, err := embedder.Embed(ctx, ex)
			if err != nil {
				return nil, fmt.Errorf("embed pattern example for %s: %w", category, err)
			}
			embs = append(embs, emb)
		}
		c.patternEmbeddings[category] = embs
		cache.SetCategoryEmbeddings(ctx, string(category), embs)
	}
	return c, nil
}

// Classify scores the query against every category's example bank and
// returns the best match. user is nil for an unauthenticated caller.
func (c *QueryClassifier) Classify(ctx context.Context, query string, user *UserContext) (Classification, error) {
	if IsQueryUnsafe(query, user) {
		return Classification{Category: CategoryUnsafe, Scores: Scores{}}, nil
	}

	queryEmb, ok := c.cache.GetQueryEmbedding(ctx, query)
	if !ok {
		var err error
		queryEmb, err = c.embedder.Embed(ctx, query)
		if err != nil {
			return Classification{}, fmt.Errorf("embed query: %w", err)
		}
		c.cache.SetQueryEmbedding(ctx, query, queryEmb)
	}

	scores := make(Scores, len(c.patternEmbeddings))
	for category, embs := range c.patternEmbeddings {
		best := -1.0
		for _, emb := range embs {
			if sim := caching.CosineSimilarity(queryEmb, emb); sim > best {
				best = sim
			}
		}
		scores[category] = best
	}

	lower := strings.ToLower(query)
	for _, trigger := range definitionalTriggers {
		if strings.HasPrefix(lower, trigger) {
			scores[CategoryGeneral] += 0.15
			break
		}
	}

	for category, raw := range scores {
		scores[category] = clamp01((raw + 1) / 2)
	}

	return Classification{Category: bestCategory(scores), Scores: scores}, nil
}

func bestCategory(scores Scores) Category {
	categories := make([]Category, 0, len(scores))
	for category := range scores {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	best := CategoryGeneral
	bestScore := -1.0
	for _, category := range categories {
		if scores[category] > bestScore {
			bestScore = scores[category]
			best = category
		}
	}
	return best
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
