// Package recommend implements the content-based, collaborative and
// hybrid recommenders and the orchestrator entry point.
package recommend

import "github.com/autofi/ai-engine/store"

// Strategy selects which recommender the orchestrator dispatches to.
type Strategy string

const (
	StrategyContent       Strategy = "content"
	StrategyCollaborative Strategy = "collaborative"
	StrategyHybrid        Strategy = "hybrid"
)

// Scored is one (vehicle id, score) pair, used internally before
// enrichment.
type Scored struct {
	VehicleID int64
	Score     float64
}

// Item is one enriched recommendation result entry.
type Item struct {
	VehicleID int64         `json:"vehicle_id"`
	Score     float64       `json:"score"`
	Features  store.Vehicle `json:"features"`
}

// Result is the ordered RecommendationResult from the data model: length
// <= requested top-N, scores non-increasing, ids distinct.
type Result struct {
	Items     []Item `json:"items"`
	ModelType string `json:"model_type"`
}
