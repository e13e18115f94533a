package assistant

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/autofi/ai-engine/intelligence"
	"github.com/autofi/ai-engine/sqlexec"
	"github.com/autofi/ai-engine/store"
)

// columnDescriptions documents the handful of columns an LLM most often
// misreads; anything absent falls back to "no description available".
var columnDescriptions = map[string]map[string]string{
	"Auctions": {
		"IsReserveMet": "whether the current bid has cleared the seller's reserve price",
		"Status":       "one of Scheduled, PreviewMode, Active, Ended, Cancelled",
	},
	"AutoBids": {
		"BidStrategyType": "one of Conservative, Aggressive, Incremental",
	},
	"BidStrategies": {
		"PreferredBidTiming": "one of Immediate, LastMinute, SpreadEvenly",
	},
	"AnalyticsEvents": {
		"EventType": "one of AuctionView, BidPlaced, AuctionCompleted, PaymentCompleted",
	},
}

// categoryTables narrows the schema context to the tables relevant for a
// query category. GENERAL, FINANCE_CALC and USER_SPECIFIC see every table,
// since any of them may end up needing the full picture.
var categoryTables = map[intelligence.Category][]string{
	intelligence.CategoryVehicleSearch: {"Vehicles", "Auctions", "Bids"},
	intelligence.CategoryAuctionSearch: {"Auctions", "Bids", "AutoBids", "BidStrategies"},
}

var enumHints = map[string][]string{
	"BidStrategyType":    {"Conservative", "Aggressive", "Incremental"},
	"PreferredBidTiming": {"Immediate", "LastMinute", "SpreadEvenly"},
	"AuctionStatus":      {"Scheduled", "PreviewMode", "Active", "Ended", "Cancelled"},
}

const vehicleFeaturesGlossary = `
Vehicle features data (from the static car-features catalog):
Each vehicle includes basic attributes (make, model, year) plus:
- drivetrain: type, transmission
- engine: type, size, horsepower, torqueFtLBS, torqueRPM, valves, camType
- fuelEconomy: fuelTankSize, combinedMPG, cityMPG, highwayMPG, CO2Emissions
- performance: horsepower, torqueFtLBS, drivetrain, zeroTo60MPH
- measurements: doors, maximumSeating, heightInches, widthInches, lengthInches, wheelbaseInches, groundClearance, cargoCapacityCuFt, curbWeightLBS
- options: list of available extras such as "Alloy wheels", "Leather seats"
`

func allTables(schema map[string][]string) []string {
	names := make([]string, 0, len(schema))
	for t := range schema {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

// SchemaContext builds the table/column/enum listing injected into the
// assistant prompt, filtered to the tables relevant for category. It is
// built against sqlexec's own allow-list so the two never drift apart.
func SchemaContext(category intelligence.Category) string {
	schema := sqlexec.Schema()
	allowed := categoryTables[category]
	if len(allowed) == 0 {
		allowed = allTables(schema)
	} else {
		sort.Strings(allowed)
	}

	var b strings.Builder
	b.WriteString("Database schema and relevant tables:\n")
	for _, table := range allowed {
		cols := schema[table]
		fmt.Fprintf(&b, "- %s: columns %v\n", table, cols)
		for _, col := range cols {
			desc := "no description available"
			if d, ok := columnDescriptions[table][col]; ok {
				desc = d
			}
			fmt.Fprintf(&b, "   - %s: %s\n", col, desc)
		}
	}

	if category != intelligence.CategoryGeneral && category != intelligence.CategoryFinanceCalc {
		names := make([]string, 0, len(enumHints))
		for name := range enumHints {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("\nEnums:\n")
		for _, name := range names {
			fmt.Fprintf(&b, "- %s: %v\n", name, enumHints[name])
		}
	}

	if category == intelligence.CategoryVehicleSearch {
		b.WriteString(vehicleFeaturesGlossary)
	}

	b.WriteString("\nColumn-to-table map:\n")
	for _, table := range allowed {
		for _, col := range schema[table] {
			fmt.Fprintf(&b, "- %s → %s\n", col, table)
		}
	}
	return b.String()
}

// FormatUserContext renders a user's interaction history as a short
// human-readable summary followed by a compact JSON fallback, rather than
// a raw JSON dump. LLMs follow a prose summary far more reliably than a
// nested JSON blob.
func FormatUserContext(interactions []store.Interaction) string {
	if len(interactions) == 0 {
		return ""
	}

	var total float64
	for _, in := range interactions {
		total += in.Weight
	}

	summary := fmt.Sprintf(
		"ML Context Summary (%d tracked vehicle interactions):\n"+
			"- Distinct vehicles interacted with: %d\n"+
			"- Total weighted engagement score: %.1f\n"+
			"(Reflects the user's latest engagement patterns for personalization.)",
		len(interactions), len(interactions), total,
	)

	compact, err := json.Marshal(interactions)
	if err != nil {
		return summary
	}
	return summary + "\nRaw context (compact JSON, for reference only):\n" + string(compact)
}

// unifiedPromptTemplate is the single combined prompt: one LLM call
// produces SQL (when needed), a human answer, and UI rendering hints in
// one JSON envelope.
const unifiedPromptTemplate = `You are the AutoFi assistant, answering vehicle-marketplace questions for an authenticated caller.

QUERY TYPE: %s
%s

## Response Requirements
- ALWAYS return valid JSON only, matching the schema below exactly.
- For database queries: generate SQL AND provide a human summary in the same response.
- The human summary must be a generic description — never hallucinate specific vehicles, auctions, or prices that the query hasn't confirmed.
- Vehicle references: always include Make, Model, Year.
- Auction references: always include the vehicle's Make, Model, Year.

## Database Schema (context-aware)
%s

## Response Format
{
  "sql": "SELECT ... WHERE ..." or null,
  "answer": "human-friendly response with specific details",
  "ui_type": "TEXT | TABLE | CARD_GRID | CALCULATOR | CHART",
  "chart_type": "bar | line | pie (required if ui_type = CHART)",
  "suggested_actions": ["follow-up question 1", "follow-up question 2"],
  "sources": [] or ["url1", "url2"],
  "data_preview": {"key": "expected data shape for UI rendering"}
}

## Query Classification Rules
- GENERAL / FINANCE_CALC: use general knowledge, set sql=null.
- VEHICLE_SEARCH / AUCTION_SEARCH: generate SQL with no UserId filters.
- USER_SPECIFIC: answer from USER CONTEXT above when possible; otherwise generate SQL with WHERE "UserId" = %d.

## Security
- Only ever include UserId = %d in generated SQL, and only for USER_SPECIFIC queries.
- Refuse queries that ask for another user's data by name, email, or id.

USER QUERY: %s

Respond with the JSON object described above and nothing else.`

// BuildPrompt assembles the category-specific prompt sent to the LLM,
// injecting the caller's own id wherever a USER_SPECIFIC query is allowed
// to scope a generated query to "WHERE UserId = {authenticated_user_id}".
func BuildPrompt(category intelligence.Category, userID int64, userContext, query string) string {
	ctxBlock := ""
	if userContext != "" {
		ctxBlock = "\nUSER CONTEXT:\n" + userContext + "\n"
	}
	return fmt.Sprintf(unifiedPromptTemplate, category, ctxBlock, SchemaContext(category), userID, userID, query)
}
