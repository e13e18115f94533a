package sqlexec

// allowedSchema is the table/column allow-list the assistant's
// LLM-generated SELECT statements are checked and quoted against.
var allowedSchema = map[string][]string{
	"Vehicles":          {"Id", "Make", "Model", "Year", "Price", "Mileage", "Color", "Transmission", "FuelType", "Status"},
	"Auctions":          {"AuctionId", "VehicleId", "StartUtc", "EndUtc", "StartingPrice", "CurrentPrice", "Status", "CreatedUtc", "UpdatedUtc", "ScheduledStartTime", "PreviewStartTime", "IsReserveMet"},
	"Bids":              {"BidId", "AuctionId", "UserId", "Amount", "IsAuto", "CreatedUtc"},
	"AutoBids":          {"Id", "UserId", "AuctionId", "MaxBidAmount", "CurrentBidAmount", "IsActive", "BidStrategyType", "CreatedAt", "UpdatedAt", "ExecutedAt"},
	"BidStrategies":     {"AuctionId", "UserId", "Type", "BidDelaySeconds", "MaxBidsPerMinute", "MaxSpreadBids", "PreferredBidTiming", "CreatedAt", "UpdatedAt"},
	"Users":             {"Id", "Name", "Email", "CreatedUtc", "LastLoggedIn"},
	"UserSavedSearches": {"UserId", "Search"},
	"UserInteractions":  {"Id", "UserId", "VehicleId", "InteractionType", "CreatedAt"},
	"Watchlists":        {"WatchlistId", "UserId", "AuctionId", "CreatedUtc"},
	"AuctionAnalytics":  {"AuctionId", "ViewCount", "BidCount", "UniqueBidders", "UpdatedUtc"},
	"AnalyticsEvents":   {"Id", "UserId", "EventType", "EventSource", "CreatedUtc"},
	"VehicleFeatures":   {"Make", "Model", "Drivetrain", "Engine", "FuelEconomy", "Performance", "Measurements", "Options"},
}

// forbiddenKeywords blocks mutating/DDL statements from ever reaching the
// database, independent of and in addition to the classifier's own
// safety gate — the two defend different layers of the pipeline.
var forbiddenKeywords = []string{
	"drop", "delete", "alter", "insert", "update", "truncate", "--", "exec", "grant", "revoke",
}

// Schema returns the table/column allow-list, keyed by table name. Callers
// (the assistant's schema-context prompt builder) get the same allow-list
// the executor itself validates against, rather than a copy that could
// drift from it.
func Schema() map[string][]string {
	out := make(map[string][]string, len(allowedSchema))
	for table, cols := range allowedSchema {
		cp := make([]string, len(cols))
		copy(cp, cols)
		out[table] = cp
	}
	return out
}
