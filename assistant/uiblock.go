package assistant

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
)

var (
	linkRe   = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	boldRe   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe = regexp.MustCompile(`\*([^*]+)\*`)
)

// renderInline escapes text and then re-applies a small set of markdown
// conversions (bold/italic/link) on top of the escaped string, so any HTML
// smuggled through the answer text, a bold span, or a link target is
// already neutralized before the surrounding tags are added.
func renderInline(text string) string {
	escaped := html.EscapeString(text)
	escaped = linkRe.ReplaceAllString(escaped, `<a href="$2">$1</a>`)
	escaped = boldRe.ReplaceAllString(escaped, `<strong>$1</strong>`)
	escaped = italicRe.ReplaceAllString(escaped, `<em>$1</em>`)
	return escaped
}

// BuildUIBlock renders the server-side HTML fragment for an assistant
// response. Every text and attribute insertion is HTML-escaped before it
// is embedded, including row values and chart payloads.
func BuildUIBlock(uiType UIType, chartType ChartType, answer string, data any) string {
	answerHTML := fmt.Sprintf("<p>%s</p>", renderInline(answer))

	switch uiType {
	case UITypeTable:
		rows, ok := rowsOf(data)
		if !ok || len(rows) == 0 {
			return answerHTML
		}
		return answerHTML + buildTable(rows)
	case UITypeCardGrid:
		rows, ok := rowsOf(data)
		if !ok || len(rows) == 0 {
			return answerHTML
		}
		return answerHTML + buildCardGrid(rows)
	case UITypeCalculator:
		return answerHTML + buildCalculator(data)
	case UITypeChart:
		return answerHTML + buildChart(data, chartType)
	default:
		return answerHTML
	}
}

func rowsOf(data any) ([]map[string]any, bool) {
	rows, ok := data.([]map[string]any)
	return rows, ok
}

func sortedKeys(row map[string]any) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildTable(rows []map[string]any) string {
	headers := sortedKeys(rows[0])

	var thead strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&thead, "<th>%s</th>", html.EscapeString(h))
	}

	var tbody strings.Builder
	for _, row := range rows {
		tbody.WriteString("<tr>")
		for _, h := range headers {
			fmt.Fprintf(&tbody, "<td>%s</td>", html.EscapeString(fmt.Sprint(row[h])))
		}
		tbody.WriteString("</tr>")
	}

	return fmt.Sprintf(
		`<div class="table-wrapper"><table class="ai-table"><thead><tr>%s</tr></thead><tbody>%s</tbody></table></div>`,
		thead.String(), tbody.String(),
	)
}

func buildCardGrid(rows []map[string]any) string {
	var cards strings.Builder
	for _, row := range rows {
		cards.WriteString(`<div class="card">`)
		for _, k := range sortedKeys(row) {
			fmt.Fprintf(&cards, "<p><strong>%s:</strong> %s</p>", html.EscapeString(k), html.EscapeString(fmt.Sprint(row[k])))
		}
		cards.WriteString("</div>")
	}
	return fmt.Sprintf(`<div class="card-grid">%s</div>`, cards.String())
}

// prettifyKey turns a snake_case key into Title Case, e.g.
// "monthly_payment" -> "Monthly Payment".
func prettifyKey(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func buildCalculator(data any) string {
	m, ok := data.(map[string]any)
	if !ok {
		return `<div class="card-grid"><div class="card"></div></div>`
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "<p><strong>%s:</strong> %s</p>", html.EscapeString(prettifyKey(k)), html.EscapeString(fmt.Sprint(m[k])))
	}
	return fmt.Sprintf(`<div class="card-grid"><div class="card">%s</div></div>`, b.String())
}

func buildChart(data any, chartType ChartType) string {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("{}")
	}
	if chartType == "" {
		chartType = ChartBar
	}
	return fmt.Sprintf(
		`<div class="chart-block" data-chart-type="%s" data-chart="%s"></div>`,
		html.EscapeString(string(chartType)), html.EscapeString(string(raw)),
	)
}
