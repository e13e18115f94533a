package caching

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func TestKeySchema(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{recKeyUser(42, 10, "hybrid"), "rec:user:42:top:10:model:hybrid"},
		{recKeyVehicle(7, 5), "rec:vehicle:7:top:5"},
		{userContextKey(42), "context:user:42:ml"},
		{queryEmbeddingKey("show me SUVs"), "embedding:query:show me SUVs"},
		{categoryEmbeddingKey("GENERAL"), "embedding:category:GENERAL"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Fatalf("key = %q, want %q", c.got, c.want)
		}
	}
}

// A facade over a nil client must degrade to misses and silent writes,
// never fail.
func TestNilClientDegradesToMiss(t *testing.T) {
	f := New(nil, zerolog.Nop())
	ctx := context.Background()

	var dst []int
	if f.GetUserRecommendations(ctx, 1, 10, "hybrid", &dst) {
		t.Fatalf("expected a miss from a nil-backed facade")
	}
	f.SetUserRecommendations(ctx, 1, 10, "hybrid", []int{1, 2, 3})

	if _, ok := f.GetQueryEmbedding(ctx, "anything"); ok {
		t.Fatalf("expected an embedding miss from a nil-backed facade")
	}
	if err := f.InvalidateUserCache(ctx, 1); err != nil {
		t.Fatalf("expected invalidation on a nil-backed facade to no-op, got %v", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors: got %f, want 1", got)
	}
	if got := CosineSimilarity([]float64{1, 0}, []float64{0, 1}); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors: got %f, want 0", got)
	}
	if got := CosineSimilarity([]float64{1, 0}, []float64{0, 0}); got != 0 {
		t.Fatalf("zero vector: got %f, want 0", got)
	}
	if got := CosineSimilarity([]float64{1, 0}, []float64{1}); got != 0 {
		t.Fatalf("mismatched lengths: got %f, want 0", got)
	}
}
