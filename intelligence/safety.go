package intelligence

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// UserContext carries the identifying details of the caller, used to
// decide whether a query naming "user id" / "email" / etc. is asking
// about the caller themself (safe) or someone else (unsafe).
type UserContext struct {
	UserID int64
	Email  string
	Name   string
}

// fuzzyContains reports whether keyword appears anywhere in text within
// an edit-distance tolerance proportional to the keyword's length.
//
// RankMatchFold's distance is only meaningful when the two strings are
// comparably sized — run against the whole (much longer) text it degrades
// into "how different is this short keyword from the entire sentence",
// which rejects genuine substring hits. Sliding a same-width window of
// words over the text and ranking each window keeps the comparison
// apples-to-apples.
func fuzzyContains(keyword, text string) bool {
	tolerance := len(keyword) / 3
	if tolerance < 1 {
		tolerance = 1
	}

	width := len(strings.Fields(keyword))
	if width < 1 {
		width = 1
	}
	words := strings.Fields(text)

	for start := 0; start+width <= len(words); start++ {
		window := strings.Join(words[start:start+width], " ")
		if rank := fuzzy.RankMatchFold(keyword, window); rank >= 0 && rank <= tolerance {
			return true
		}
	}
	// Keyword forms like "--" carry no letters Fields can anchor a
	// window width on; fall back to a direct substring check.
	return strings.Contains(text, keyword)
}

var crossUserIDRe = regexp.MustCompile(`\buser\s*(?:id\s*)?#?\s*(\d+)`)

// IsQueryUnsafe blocks SQL-injection keywords, reserve-price questions,
// and cross-user identifier lookups.
func IsQueryUnsafe(query string, user *UserContext) bool {
	q := strings.ToLower(query)

	for _, kw := range forbiddenSQLKeywords {
		if fuzzyContains(kw, q) {
			return true
		}
	}
	if fuzzyContains("reserve price", q) {
		return true
	}

	if user == nil {
		return false
	}
	userID := strconv.FormatInt(user.UserID, 10)
	email := strings.ToLower(user.Email)
	name := strings.ToLower(user.Name)

	// A bare numeric reference like "user 9" identifies someone by id
	// without using any of the sensitive terms below; compare it to the
	// caller directly.
	for _, m := range crossUserIDRe.FindAllStringSubmatch(q, -1) {
		if m[1] != userID {
			return true
		}
	}

	for _, term := range sensitiveTerms {
		if !fuzzyContains(term, q) {
			continue
		}
		selfReference := (userID != "" && strings.Contains(q, userID)) ||
			(email != "" && strings.Contains(q, email)) ||
			(name != "" && strings.Contains(q, name))
		if !selfReference {
			return true
		}
	}
	return false
}
