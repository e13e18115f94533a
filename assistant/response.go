package assistant

import (
	"regexp"
	"strings"
)

var uiMarkerRe = regexp.MustCompile(`(?i)\[(table|card_grid|calculator|chart)\]`)

// SniffUIType looks for a `[TABLE]`/`[CARD_GRID]`/`[CALCULATOR]`/`[CHART]`
// marker in a raw LLM reply that failed JSON-mode parsing, and strips it
// from the text. It returns UITypeText with the response unchanged when no
// marker is present. Used only on the fallback path; the primary path gets
// ui_type from the structured JSON envelope.
func SniffUIType(response string) (UIType, string) {
	lowered := strings.ToLower(response)
	uiType := UITypeText
	switch {
	case strings.Contains(lowered, "[table]"):
		uiType = UITypeTable
	case strings.Contains(lowered, "[card_grid]"):
		uiType = UITypeCardGrid
	case strings.Contains(lowered, "[calculator]"):
		uiType = UITypeCalculator
	case strings.Contains(lowered, "[chart]"):
		uiType = UITypeChart
	}
	return uiType, strings.TrimSpace(uiMarkerRe.ReplaceAllString(response, ""))
}
