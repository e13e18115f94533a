// Package sqlexec implements the SafeSQLExecutor: a nine-stage
// validation pipeline that turns an LLM-generated SELECT statement into
// either rejected input or a bounded, schema-quoted, user-scoped query
// against the relational store.
package sqlexec

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/autofi/ai-engine/apierr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const maxRows = 10

// Scope is the authenticated caller a user-specific query must match.
type Scope struct {
	UserID int64
	Name   string
	Email  string
}

// Executor runs the validation pipeline and, on success, the query
// itself against the pool.
type Executor struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
	logger       zerolog.Logger
}

// New constructs an Executor. queryTimeout <= 0 disables the per-query
// deadline and leaves cancellation to the caller's context alone.
func New(pool *pgxpool.Pool, queryTimeout time.Duration, logger zerolog.Logger) *Executor {
	return &Executor{
		pool:         pool,
		queryTimeout: queryTimeout,
		logger:       logger.With().Str("component", "sql_executor").Logger(),
	}
}

var whitespaceRun = regexp.MustCompile(`[\t\r\n]+|\s{2,}`)

// normalize collapses newlines/tabs and repeated spaces into single
// spaces and trims the result (stage 1).
func normalize(query string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(query, " "))
}

// Run executes the nine-stage pipeline. scope is nil for queries that
// don't carry a user-scope requirement (GENERAL/FINANCE_CALC never call
// this at all; VEHICLE_SEARCH/AUCTION_SEARCH pass nil; USER_SPECIFIC
// always passes a non-nil scope).
func (e *Executor) Run(ctx context.Context, query string, scope *Scope) ([]map[string]any, error) {
	q := normalize(query)

	if !strings.HasPrefix(strings.ToLower(q), "select") {
		return nil, apierr.UnsafeQuery("only SELECT queries are allowed")
	}

	if idx := strings.Index(q, ";"); idx >= 0 && idx != len(q)-1 {
		return nil, apierr.UnsafeQuery("query contains an embedded statement separator")
	}
	q = strings.TrimSuffix(q, ";")

	lower := strings.ToLower(q)
	for _, kw := range forbiddenKeywords {
		if strings.Contains(lower, kw) {
			return nil, apierr.UnsafeQuery(fmt.Sprintf("query contains forbidden keyword %q", kw))
		}
	}

	tables, err := extractTables(q)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if _, ok := allowedSchema[t]; !ok {
			return nil, apierr.UnsafeQuery(fmt.Sprintf("table %q is not in the allow-list", t))
		}
	}

	if err := checkUserScope(q, scope); err != nil {
		return nil, err
	}

	q = enforceSchema(q)
	q = ensureLimit(q)

	e.logger.Debug().Str("query", q).Msg("executing safe query")

	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	rows, err := e.pool.Query(ctx, q)
	if err != nil {
		return nil, apierr.Upstream(fmt.Errorf("execute query: %w", err))
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		if len(out) >= maxRows {
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, apierr.Upstream(fmt.Errorf("scan row: %w", err))
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Upstream(fmt.Errorf("iterate rows: %w", err))
	}
	return out, nil
}

var fromJoinRe = regexp.MustCompile(`(?i)\b(?:from|join)\s+"?([a-zA-Z_][a-zA-Z0-9_]*)"?`)

// extractTables pulls every FROM/JOIN table reference (stage 5).
func extractTables(query string) ([]string, error) {
	matches := fromJoinRe.FindAllStringSubmatch(query, -1)
	if matches == nil {
		return nil, apierr.UnsafeQuery("query references no table")
	}
	seen := make(map[string]bool, len(matches))
	var tables []string
	for _, m := range matches {
		name := canonicalTable(m[1])
		if !seen[name] {
			seen[name] = true
			tables = append(tables, name)
		}
	}
	return tables, nil
}

// canonicalTable maps a case-insensitive match back to the allow-list's
// canonical casing, or returns the match unchanged if unknown (the
// allow-list check that follows then rejects it).
func canonicalTable(name string) string {
	for t := range allowedSchema {
		if strings.EqualFold(t, name) {
			return t
		}
	}
	return name
}

var (
	userIDBareRe = regexp.MustCompile(`(?i)\bUserId"?\s*=\s*(\d+)`)
	usersIDRe    = regexp.MustCompile(`(?i)"?Users"?\."?Id"?\s*=\s*(\d+)`)
	usersNameRe  = regexp.MustCompile(`(?i)"?Users"?\."?Name"?\s*=\s*'([^']+)'`)
	usersEmailRe = regexp.MustCompile(`(?i)"?Users"?\."?Email"?\s*=\s*'([^']+)'`)
)

// checkUserScope enforces stage 6: every literal user filter must match
// the authenticated caller exactly (case-insensitive).
func checkUserScope(query string, scope *Scope) error {
	if scope == nil {
		return nil
	}
	wantID := strconv.FormatInt(scope.UserID, 10)

	for _, m := range userIDBareRe.FindAllStringSubmatch(query, -1) {
		if !strings.EqualFold(m[1], wantID) {
			return apierr.Unauthorized("UserId filter does not match the authenticated user")
		}
	}
	for _, m := range usersIDRe.FindAllStringSubmatch(query, -1) {
		if !strings.EqualFold(m[1], wantID) {
			return apierr.Unauthorized("Users.Id filter does not match the authenticated user")
		}
	}
	for _, m := range usersNameRe.FindAllStringSubmatch(query, -1) {
		if !strings.EqualFold(m[1], scope.Name) {
			return apierr.Unauthorized("Users.Name filter does not match the authenticated user")
		}
	}
	for _, m := range usersEmailRe.FindAllStringSubmatch(query, -1) {
		if !strings.EqualFold(m[1], scope.Email) {
			return apierr.Unauthorized("Users.Email filter does not match the authenticated user")
		}
	}
	return nil
}

// enforceSchema wraps every bare table/column identifier in double
// quotes, preserving the allow-list's canonical case (stage 7).
func enforceSchema(query string) string {
	names := make([]string, 0, len(allowedSchema)*6)
	for table, cols := range allowedSchema {
		names = append(names, table)
		names = append(names, cols...)
	}
	// Longest-first is cosmetic (\b already prevents partial overlap)
	// but keeps the rewrite deterministic for identical-length names.
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		query = quoteIdentifier(query, name)
	}
	return query
}

func quoteIdentifier(query, name string) string {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	idxs := re.FindAllStringIndex(query, -1)
	if idxs == nil {
		return query
	}
	var b strings.Builder
	last := 0
	for _, idx := range idxs {
		start, end := idx[0], idx[1]
		alreadyQuoted := start > 0 && query[start-1] == '"' && end < len(query) && query[end] == '"'
		b.WriteString(query[last:start])
		if alreadyQuoted {
			b.WriteString(query[start:end])
		} else {
			b.WriteString(`"` + name + `"`)
		}
		last = end
	}
	b.WriteString(query[last:])
	return b.String()
}

// ensureLimit appends LIMIT 10 only when the query has neither a LIMIT
// nor an aggregate COUNT() clause (stage 8). A larger LLM-supplied LIMIT
// is honored here; Run additionally clamps the fetched rows to maxRows
// regardless, since an absent safeguard at the row-cap layer would let a
// malformed or adversarial LIMIT defeat the cap entirely.
func ensureLimit(query string) string {
	lower := strings.ToLower(query)
	if strings.Contains(lower, "limit") || strings.Contains(lower, "count(") {
		return query
	}
	return query + fmt.Sprintf(" LIMIT %d", maxRows)
}
