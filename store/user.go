package store

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Interaction is one user→vehicle engagement event, aggregated by type.
type Interaction struct {
	VehicleID int64
	Weight    float64
}

// interactionWeights is the fixed per-type weight table used to turn raw
// interaction counts into the weighted counts the hybrid recommender
// consumes. Values reflect how strong a signal of intent each type is:
// a contacted seller is worth far more than a passive view.
var interactionWeights = map[string]float64{
	"view":             1.0,
	"share":            2.0,
	"favorite_added":   3.0,
	"contacted_seller": 5.0,
}

// UserStore offers user-existence checks and interaction aggregation.
type UserStore struct {
	pool *pgxpool.Pool

	mu            sync.Mutex
	summaryLoaded bool
	summaryByUser map[int64][]Interaction
	existsSet     map[int64]bool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool, summaryByUser: make(map[int64][]Interaction)}
}

// SeedInteractions injects a user's interaction list directly and marks
// the in-process summary as loaded, bypassing the DB. For tests only.
func (s *UserStore) SeedInteractions(userID int64, interactions []Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaryLoaded = true
	if s.summaryByUser == nil {
		s.summaryByUser = make(map[int64][]Interaction)
	}
	s.summaryByUser[userID] = interactions
}

// SeedExists marks a fixed set of user ids as existing, for tests that
// exercise the orchestrator without a real pool. A nil pool with no
// seeded users makes Exists panic, same as any other unconfigured
// dependency — callers must seed before use in tests.
func (s *UserStore) SeedExists(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsSet == nil {
		s.existsSet = make(map[int64]bool)
	}
	for _, id := range ids {
		s.existsSet[id] = true
	}
}

// Exists checks whether a user id is present in the Users table.
func (s *UserStore) Exists(ctx context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	if s.existsSet != nil {
		ok := s.existsSet[userID]
		s.mu.Unlock()
		return ok, nil
	}
	s.mu.Unlock()

	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM "Users" WHERE "Id" = $1)`, userID).Scan(&exists)
	return exists, err
}

// InteractionsSummary loads and aggregates every user's interactions once
// per process, caching the result in memory.
func (s *UserStore) InteractionsSummary(ctx context.Context) (map[int64][]Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summaryLoaded {
		return s.summaryByUser, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT "UserId", "VehicleId", "InteractionType", COUNT(*) AS cnt
		FROM "UserInteractions"
		GROUP BY "UserId", "VehicleId", "InteractionType"
		ORDER BY "UserId", "VehicleId"`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agg := make(map[int64]map[int64]float64)
	for rows.Next() {
		var userID, vehicleID int64
		var interactionType string
		var count int64
		if err := rows.Scan(&userID, &vehicleID, &interactionType, &count); err != nil {
			return nil, err
		}
		w := interactionWeights[interactionType]
		if agg[userID] == nil {
			agg[userID] = make(map[int64]float64)
		}
		agg[userID][vehicleID] += w * float64(count)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make(map[int64][]Interaction, len(agg))
	for userID, byVehicle := range agg {
		list := make([]Interaction, 0, len(byVehicle))
		for vehicleID, weight := range byVehicle {
			list = append(list, Interaction{VehicleID: vehicleID, Weight: weight})
		}
		result[userID] = list
	}

	s.summaryByUser = result
	s.summaryLoaded = true
	return result, nil
}

// InteractionsFor returns the weighted interaction list for one user.
func (s *UserStore) InteractionsFor(ctx context.Context, userID int64) ([]Interaction, error) {
	summary, err := s.InteractionsSummary(ctx)
	if err != nil {
		return nil, err
	}
	return summary[userID], nil
}
