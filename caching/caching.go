// Package caching is the typed key/value facade (CacheFacade) over Redis.
//
// Key schema, TTL policy and degrade-on-miss behavior are fixed by the
// recommendation and assistant pipelines that consume this package; see
// the key builder functions below for the exact strings.
package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// DefaultTTL is used for recommendation results and ML context snapshots.
	DefaultTTL = 900 * time.Second
	// QueryEmbeddingTTL is used for single-question embeddings.
	QueryEmbeddingTTL = 3600 * time.Second
	// CategoryEmbeddingTTL is used for the classifier's example-bank embeddings.
	CategoryEmbeddingTTL = 86400 * time.Second
	// VehicleFeaturesTTL bounds how long the whole catalog snapshot is kept.
	VehicleFeaturesTTL = 24 * time.Hour
)

// Facade is the typed cache facade. It never returns an error for a
// miss or a deserialization failure — callers are expected to recompute.
type Facade struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// New wraps an existing Redis client.
func New(rdb *redis.Client, logger zerolog.Logger) *Facade {
	return &Facade{rdb: rdb, logger: logger.With().Str("component", "cache_facade").Logger()}
}

// ─── Key schema (exact strings per the data model) ──────────────────────

func recKeyUser(userID int64, n int, modelType string) string {
	return fmt.Sprintf("rec:user:%d:top:%d:model:%s", userID, n, modelType)
}

func recKeyVehicle(vehicleID int64, n int) string {
	return fmt.Sprintf("rec:vehicle:%d:top:%d", vehicleID, n)
}

func userContextKey(userID int64) string {
	return fmt.Sprintf("context:user:%d:ml", userID)
}

func queryEmbeddingKey(text string) string {
	return fmt.Sprintf("embedding:query:%s", text)
}

func categoryEmbeddingKey(category string) string {
	return fmt.Sprintf("embedding:category:%s", category)
}

const vehicleFeaturesKey = "vehicle_features"

// ─── Generic get/set, JSON-encoded ───────────────────────────────────────

// getJSON fetches a key and unmarshals it into dst. It returns false
// on any miss or decode error — callers treat that as "recompute", never
// as a hard failure.
func (f *Facade) getJSON(ctx context.Context, key string, dst any) bool {
	if f.rdb == nil {
		return false
	}
	raw, err := f.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			f.logger.Debug().Err(err).Str("key", key).Msg("cache get failed, treating as miss")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("cache value undecodable, treating as miss")
		return false
	}
	return true
}

func (f *Facade) setJSON(ctx context.Context, key string, val any, ttl time.Duration) {
	if f.rdb == nil {
		return
	}
	raw, err := json.Marshal(val)
	if err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("cache value unencodable, skipping write")
		return
	}
	if err := f.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		f.logger.Debug().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// ─── Recommendation results ──────────────────────────────────────────────

// GetUserRecommendations returns a cached recommendation result for a user
// strategy, reporting whether it was found.
func (f *Facade) GetUserRecommendations(ctx context.Context, userID int64, n int, modelType string, dst any) bool {
	return f.getJSON(ctx, recKeyUser(userID, n, modelType), dst)
}

// SetUserRecommendations writes back a recommendation result with the
// default TTL.
func (f *Facade) SetUserRecommendations(ctx context.Context, userID int64, n int, modelType string, val any) {
	f.setJSON(ctx, recKeyUser(userID, n, modelType), val, DefaultTTL)
}

// GetVehicleSimilar returns cached similar-vehicle results.
func (f *Facade) GetVehicleSimilar(ctx context.Context, vehicleID int64, n int, dst any) bool {
	return f.getJSON(ctx, recKeyVehicle(vehicleID, n), dst)
}

// SetVehicleSimilar writes back similar-vehicle results.
func (f *Facade) SetVehicleSimilar(ctx context.Context, vehicleID int64, n int, val any) {
	f.setJSON(ctx, recKeyVehicle(vehicleID, n), val, DefaultTTL)
}

// InvalidateUserCache deletes every rec:user:{user_id}:* key via a cursor
// scan. Used whenever a user's interaction set changes underneath a cached
// recommendation.
func (f *Facade) InvalidateUserCache(ctx context.Context, userID int64) error {
	return f.invalidatePrefix(ctx, fmt.Sprintf("rec:user:%d:*", userID))
}

// InvalidateVehicleCache deletes every rec:vehicle:{vehicle_id}:* key.
func (f *Facade) InvalidateVehicleCache(ctx context.Context, vehicleID int64) error {
	return f.invalidatePrefix(ctx, fmt.Sprintf("rec:vehicle:%d:*", vehicleID))
}

func (f *Facade) invalidatePrefix(ctx context.Context, pattern string) error {
	if f.rdb == nil {
		return nil
	}
	var cursor uint64
	for {
		keys, next, err := f.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return fmt.Errorf("cache scan %q: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := f.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache del %q: %w", pattern, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// ─── User ML context snapshot ────────────────────────────────────────────

func (f *Facade) GetUserContext(ctx context.Context, userID int64, dst any) bool {
	return f.getJSON(ctx, userContextKey(userID), dst)
}

func (f *Facade) SetUserContext(ctx context.Context, userID int64, val any) {
	f.setJSON(ctx, userContextKey(userID), val, DefaultTTL)
}

// ─── Embeddings ───────────────────────────────────────────────────────────

func (f *Facade) GetQueryEmbedding(ctx context.Context, text string) ([]float64, bool) {
	var v []float64
	if f.getJSON(ctx, queryEmbeddingKey(text), &v) {
		return v, true
	}
	return nil, false
}

func (f *Facade) SetQueryEmbedding(ctx context.Context, text string, emb []float64) {
	f.setJSON(ctx, queryEmbeddingKey(text), emb, QueryEmbeddingTTL)
}

func (f *Facade) GetCategoryEmbeddings(ctx context.Context, category string) ([][]float64, bool) {
	var v [][]float64
	if f.getJSON(ctx, categoryEmbeddingKey(category), &v) {
		return v, true
	}
	return nil, false
}

func (f *Facade) SetCategoryEmbeddings(ctx context.Context, category string, embs [][]float64) {
	f.setJSON(ctx, categoryEmbeddingKey(category), embs, CategoryEmbeddingTTL)
}

// ─── Vehicle catalog snapshot ─────────────────────────────────────────────

func (f *Facade) GetVehicleFeatures(ctx context.Context, dst any) bool {
	return f.getJSON(ctx, vehicleFeaturesKey, dst)
}

func (f *Facade) SetVehicleFeatures(ctx context.Context, val any) {
	f.setJSON(ctx, vehicleFeaturesKey, val, VehicleFeaturesTTL)
}

// CosineSimilarity computes cosine similarity between two equal-length
// vectors, returning 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
