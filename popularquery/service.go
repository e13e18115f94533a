// Package popularquery dedups user questions by semantic similarity and
// tracks how often each distinct question has been asked
// (PopularQueryService).
package popularquery

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/autofi/ai-engine/caching"
	"github.com/autofi/ai-engine/intelligence"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DefaultSimilarityThreshold is the cosine-similarity bar above which a
// new question is folded into an existing entry instead of inserted.
const DefaultSimilarityThreshold = 0.68

var punctuation = regexp.MustCompile(`[^\w\s]`)

func normalize(text string) string {
	lower := strings.ToLower(text)
	stripped := punctuation.ReplaceAllString(lower, "")
	return strings.TrimSpace(stripped)
}

// Query is one row of the PopularQueries table.
type Query struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Count     int       `json:"count"`
	LastAsked time.Time `json:"last_asked"`
}

// SaveResult reports what save did: inserted a new row, matched and
// incremented an existing one, or fell back to an unembedded insert.
type SaveResult struct {
	Inserted   bool
	Matched    bool
	MatchID    int64
	Similarity float64
}

// Service is the popular-query tracker.
type Service struct {
	pool                *pgxpool.Pool
	embedder            intelligence.Embedder
	similarityThreshold float64
	logger              zerolog.Logger
}

// New constructs a Service. threshold <= 0 takes DefaultSimilarityThreshold.
func New(pool *pgxpool.Pool, embedder intelligence.Embedder, threshold float64, logger zerolog.Logger) *Service {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Service{
		pool:                pool,
		embedder:            embedder,
		similarityThreshold: threshold,
		logger:              logger.With().Str("component", "popular_query_service").Logger(),
	}
}

type row struct {
	id   int64
	text string
	emb  []float64
}

// Save records that question was asked, merging it into the closest
// existing entry when similarity clears the threshold, else inserting a
// new one. A question that fails to embed is still recorded, with no
// embedding attached, so counting never depends on the LLM being up.
func (s *Service) Save(ctx context.Context, question string) (SaveResult, error) {
	text := strings.TrimSpace(question)
	if text == "" {
		return SaveResult{}, fmt.Errorf("popularquery: empty question")
	}

	newEmb, err := s.embedder.Embed(ctx, normalize(text))
	if err != nil {
		s.logger.Warn().Err(err).Msg("embedding failed, inserting without embedding")
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO "PopularQueries" ("DisplayText","Count","LastAsked") VALUES ($1,1,NOW())`,
			text); err != nil {
			return SaveResult{}, fmt.Errorf("insert popular query: %w", err)
		}
		return SaveResult{Inserted: true}, nil
	}

	rows, err := s.loadRows(ctx)
	if err != nil {
		return SaveResult{}, fmt.Errorf("load popular queries: %w", err)
	}

	if len(rows) == 0 {
		if err := s.insertWithEmbedding(ctx, text, newEmb); err != nil {
			return SaveResult{}, err
		}
		return SaveResult{Inserted: true}, nil
	}

	rows = s.backfillMissing(ctx, rows)

	bestID, bestSim := s.bestMatch(newEmb, rows)
	if bestSim >= s.similarityThreshold {
		if _, err := s.pool.Exec(ctx,
			`UPDATE "PopularQueries" SET "Count" = "Count" + 1, "LastAsked" = NOW() WHERE "Id" = $1`,
			bestID); err != nil {
			return SaveResult{}, fmt.Errorf("increment popular query: %w", err)
		}
		return SaveResult{Matched: true, MatchID: bestID, Similarity: bestSim}, nil
	}

	if err := s.insertWithEmbedding(ctx, text, newEmb); err != nil {
		return SaveResult{}, err
	}
	return SaveResult{Inserted: true}, nil
}

func (s *Service) insertWithEmbedding(ctx context.Context, text string, emb []float64) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO "PopularQueries" ("DisplayText","Count","LastAsked","Embedding") VALUES ($1,1,NOW(),$2)`,
		text, emb); err != nil {
		return fmt.Errorf("insert popular query: %w", err)
	}
	return nil
}

func (s *Service) loadRows(ctx context.Context) ([]row, error) {
	rows, err := s.pool.Query(ctx, `SELECT "Id","DisplayText","Embedding" FROM "PopularQueries"`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var r row
		var emb []float64
		if err := rows.Scan(&r.id, &r.text, &emb); err != nil {
			return nil, err
		}
		r.emb = emb
		out = append(out, r)
	}
	return out, rows.Err()
}

// backfillMissing embeds and persists embeddings for any rows that
// predate embedding capture, so later saves can match against them too.
func (s *Service) backfillMissing(ctx context.Context, rows []row) []row {
	for i := range rows {
		if len(rows[i].emb) > 0 {
			continue
		}
		emb, err := s.embedder.Embed(ctx, normalize(rows[i].text))
		if err != nil {
			s.logger.Debug().Err(err).Int64("id", rows[i].id).Msg("backfill embedding failed, skipping")
			continue
		}
		rows[i].emb = emb
		if _, err := s.pool.Exec(ctx, `UPDATE "PopularQueries" SET "Embedding" = $1 WHERE "Id" = $2`, emb, rows[i].id); err != nil {
			s.logger.Debug().Err(err).Int64("id", rows[i].id).Msg("backfill persist failed")
		}
	}
	return rows
}

func (s *Service) bestMatch(newEmb []float64, rows []row) (int64, float64) {
	bestSim := -1.0
	var bestID int64
	for _, r := range rows {
		if len(r.emb) == 0 {
			continue
		}
		sim := caching.CosineSimilarity(newEmb, r.emb)
		if sim > bestSim {
			bestSim = sim
			bestID = r.id
		}
	}
	return bestID, bestSim
}

// Top returns the limit most-asked queries, ties broken by recency.
func (s *Service) Top(ctx context.Context, limit int) ([]Query, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT "DisplayText","Count","LastAsked" FROM "PopularQueries" ORDER BY "Count" DESC, "LastAsked" DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query top popular queries: %w", err)
	}
	defer rows.Close()

	var out []Query
	for rows.Next() {
		var q Query
		if err := rows.Scan(&q.Text, &q.Count, &q.LastAsked); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
