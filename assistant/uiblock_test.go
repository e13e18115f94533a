package assistant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildUIBlockTextEscapesAndConvertsMarkdown(t *testing.T) {
	block := BuildUIBlock(UITypeText, "", "Check **this** out, it's <script>alert(1)</script> and *great*", nil)

	require.NotContains(t, block, "<script>")
	require.Contains(t, block, "&lt;script&gt;")
	require.Contains(t, block, "<strong>this</strong>")
	require.Contains(t, block, "<em>great</em>")
}

func TestBuildUIBlockTableRendersHeadersAndEscapesValues(t *testing.T) {
	rows := []map[string]any{
		{"Make": "Toyota", "Model": "<b>Camry</b>"},
	}
	block := BuildUIBlock(UITypeTable, "", "Here are your results", rows)

	require.Contains(t, block, "<table")
	require.Contains(t, block, "<th>Make</th>")
	require.Contains(t, block, "&lt;b&gt;Camry&lt;/b&gt;")
	require.NotContains(t, block, "<b>Camry</b>")
}

func TestBuildUIBlockTableFallsBackToAnswerOnEmptyData(t *testing.T) {
	block := BuildUIBlock(UITypeTable, "", "no rows", nil)
	require.Equal(t, "<p>no rows</p>", block)
}

func TestBuildUIBlockCardGridRendersOneCardPerRow(t *testing.T) {
	rows := []map[string]any{
		{"Vehicle": "Civic"},
		{"Vehicle": "Accord"},
	}
	block := BuildUIBlock(UITypeCardGrid, "", "matches", rows)
	require.Equal(t, 2, strings.Count(block, `class="card"`))
}

func TestBuildUIBlockCalculatorPrettifiesKeys(t *testing.T) {
	data := map[string]any{"monthly_payment": 412.5}
	block := BuildUIBlock(UITypeCalculator, "", "Estimated payment", data)
	require.Contains(t, block, "Monthly Payment")
}

func TestBuildUIBlockChartEscapesJSONIntoDataAttribute(t *testing.T) {
	data := map[string]any{"label": `"><script>alert(1)</script>`}
	block := BuildUIBlock(UITypeChart, ChartBar, "trend", data)

	require.Contains(t, block, `data-chart-type="bar"`)
	require.NotContains(t, block, "<script>")
	require.Contains(t, block, "data-chart=")
}

func TestBuildUIBlockChartDefaultsChartType(t *testing.T) {
	block := BuildUIBlock(UITypeChart, "", "trend", map[string]any{"x": 1})
	require.Contains(t, block, `data-chart-type="bar"`)
}
