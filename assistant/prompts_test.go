package assistant

import (
	"testing"

	"github.com/autofi/ai-engine/intelligence"
	"github.com/autofi/ai-engine/store"
	"github.com/stretchr/testify/require"
)

func TestSchemaContextNarrowsTablesByCategory(t *testing.T) {
	vehicleCtx := SchemaContext(intelligence.CategoryVehicleSearch)
	require.Contains(t, vehicleCtx, "Vehicles: columns")
	require.NotContains(t, vehicleCtx, "BidStrategies: columns")
	require.Contains(t, vehicleCtx, "Vehicle features data")

	generalCtx := SchemaContext(intelligence.CategoryGeneral)
	require.Contains(t, generalCtx, "BidStrategies: columns")
	require.NotContains(t, generalCtx, "\nEnums:")
}

func TestSchemaContextIncludesEnumsForAuctionSearch(t *testing.T) {
	ctx := SchemaContext(intelligence.CategoryAuctionSearch)
	require.Contains(t, ctx, "AuctionStatus")
	require.Contains(t, ctx, "Conservative")
}

func TestFormatUserContextEmptyReturnsEmptyString(t *testing.T) {
	require.Equal(t, "", FormatUserContext(nil))
}

func TestFormatUserContextSummarizesInteractions(t *testing.T) {
	out := FormatUserContext([]store.Interaction{
		{VehicleID: 1, Weight: 3},
		{VehicleID: 2, Weight: 5},
	})
	require.Contains(t, out, "2 tracked vehicle interactions")
	require.Contains(t, out, "Total weighted engagement score: 8.0")
	require.Contains(t, out, "Raw context (compact JSON")
}

func TestBuildPromptInjectsUserIDForUserSpecificScope(t *testing.T) {
	prompt := BuildPrompt(intelligence.CategoryUserSpecific, 42, "", "what have I viewed?")
	require.Contains(t, prompt, `WHERE "UserId" = 42`)
	require.Contains(t, prompt, "UserId = 42")
	require.Contains(t, prompt, "what have I viewed?")
}

func TestBuildPromptIncludesUserContextBlockWhenPresent(t *testing.T) {
	prompt := BuildPrompt(intelligence.CategoryUserSpecific, 7, "ML Context Summary", "hello")
	require.Contains(t, prompt, "USER CONTEXT:\nML Context Summary")
}
