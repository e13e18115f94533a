package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/autofi/ai-engine/apierr"
	"github.com/autofi/ai-engine/intelligence"
	"github.com/autofi/ai-engine/llmclient"
	"github.com/autofi/ai-engine/popularquery"
	"github.com/autofi/ai-engine/sqlexec"
	"github.com/autofi/ai-engine/store"
	"github.com/rs/zerolog"
)

const (
	maxTokensGenerate    = 800
	maxTokensSummarize   = 400
	generateTemperature  = 0.2
	summarizeTemperature = 0.3
	maxSuggestedActions  = 3
	popularSaveTimeout   = 5 * time.Second
)

var validUITypes = map[string]UIType{
	"TEXT":       UITypeText,
	"TABLE":      UITypeTable,
	"CARD_GRID":  UITypeCardGrid,
	"CALCULATOR": UITypeCalculator,
	"CHART":      UITypeChart,
}

// Request is one assistant turn, identifying the authenticated caller the
// generated SQL (if any) must be scoped to.
type Request struct {
	UserID   int64
	Email    string
	Name     string
	Question string
}

// Tuning bounds the generation LLM call. Zero values take the package
// defaults; the summarization call keeps its own fixed, tighter bounds.
type Tuning struct {
	MaxTokens   int
	Temperature float64
}

func (t Tuning) withDefaults() Tuning {
	if t.MaxTokens <= 0 {
		t.MaxTokens = maxTokensGenerate
	}
	if t.Temperature <= 0 {
		t.Temperature = generateTemperature
	}
	return t
}

// Orchestrator drives the classify -> prompt -> LLM -> execute ->
// summarize -> render pipeline described in the state machine this
// package implements (AssistantOrchestrator).
type Orchestrator struct {
	classifier *intelligence.QueryClassifier
	executor   *sqlexec.Executor
	llm        *llmclient.Client
	popular    *popularquery.Service
	users      *store.UserStore
	tuning     Tuning
	logger     zerolog.Logger
}

func NewOrchestrator(
	classifier *intelligence.QueryClassifier,
	executor *sqlexec.Executor,
	llm *llmclient.Client,
	popular *popularquery.Service,
	users *store.UserStore,
	tuning Tuning,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		executor:   executor,
		llm:        llm,
		popular:    popular,
		users:      users,
		tuning:     tuning.withDefaults(),
		logger:     logger.With().Str("component", "assistant_orchestrator").Logger(),
	}
}

// Handle runs one full assistant turn. It never returns an error for a
// problem internal to the pipeline itself (classification failure, LLM
// failure, unsafe query, unusable reply, rejected SQL) — every one of
// those degrades to a fallback AssistantResponse instead. A reply that is
// not a valid JSON envelope but still carries text is kept, with its UI
// type taken from SniffUIType; only an empty one falls back. The only
// error return is for a malformed request.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (AssistantResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return AssistantResponse{}, apierr.Validation("question must not be empty")
	}

	user := &intelligence.UserContext{UserID: req.UserID, Email: req.Email, Name: req.Name}
	classification, err := o.classifier.Classify(ctx, question, user)
	if err != nil {
		o.logger.Warn().Err(err).Msg("classification failed, falling back")
		return o.fallback(string(intelligence.CategoryGeneral)), nil
	}
	if classification.Category == intelligence.CategoryUnsafe {
		return o.fallback(string(intelligence.CategoryUnsafe)), nil
	}

	interactions, err := o.users.InteractionsFor(ctx, req.UserID)
	if err != nil {
		o.logger.Debug().Err(err).Int64("user_id", req.UserID).Msg("interaction lookup failed, continuing without user context")
	}
	userContext := FormatUserContext(interactions)

	prompt := BuildPrompt(classification.Category, req.UserID, userContext, question)
	raw, err := o.llm.Complete(ctx, []llmclient.Message{{Role: "user", Content: prompt}}, true, o.tuning.MaxTokens, o.tuning.Temperature)
	if err != nil {
		o.logger.Warn().Err(err).Msg("llm generation failed, falling back")
		return o.fallback(string(classification.Category)), nil
	}

	envelope, ok := parseEnvelope(raw)
	if !ok {
		uiType, cleaned := SniffUIType(raw)
		if cleaned == "" {
			return o.fallback(string(classification.Category)), nil
		}
		resp := AssistantResponse{
			Answer:    cleaned,
			UIType:    uiType,
			QueryType: string(classification.Category),
		}
		if resp.UIType == UITypeChart {
			resp.ChartType = ChartBar
		}
		resp.UIBlock = BuildUIBlock(resp.UIType, resp.ChartType, resp.Answer, resp.Data)
		go o.recordPopular(question)
		return resp, nil
	}

	resp := AssistantResponse{
		Answer:           envelope.Answer,
		UIType:           resolveUIType(envelope.UIType),
		QueryType:        string(classification.Category),
		SuggestedActions: capActions(envelope.SuggestedActions),
		Sources:          envelope.Sources,
		Data:             envelope.DataPreview,
	}
	// chart_type is only meaningful alongside ui_type=CHART; clearing it
	// otherwise keeps the two fields from disagreeing.
	if resp.UIType == UITypeChart {
		resp.ChartType = ChartType(envelope.ChartType)
		if resp.ChartType == "" {
			resp.ChartType = ChartBar
		}
	}

	switch classification.Category {
	case intelligence.CategoryGeneral, intelligence.CategoryFinanceCalc:
		// sql is always null for these categories; render directly.
	default:
		if envelope.SQL == nil || strings.TrimSpace(*envelope.SQL) == "" {
			break
		}
		var scope *sqlexec.Scope
		if classification.Category == intelligence.CategoryUserSpecific {
			scope = &sqlexec.Scope{UserID: req.UserID, Name: req.Name, Email: req.Email}
		}
		rows, err := o.executor.Run(ctx, *envelope.SQL, scope)
		if err != nil {
			o.logger.Info().Err(err).Msg("generated query rejected or failed, falling back")
			return o.fallback(string(classification.Category)), nil
		}
		resp.Data = rows
		resp.Answer = o.summarize(ctx, question, rows, envelope.Answer)
	}

	resp.UIBlock = BuildUIBlock(resp.UIType, resp.ChartType, resp.Answer, resp.Data)
	go o.recordPopular(question)
	return resp, nil
}

// summarize produces the final human answer for an executed query: a
// second LLM call grounded in the actual rows, falling back to a
// deterministic aggregate summary when that call fails or replies with
// something unusable.
func (o *Orchestrator) summarize(ctx context.Context, question string, rows []map[string]any, fallbackAnswer string) string {
	if len(rows) == 0 {
		return "No matching records were found for your request."
	}

	preview, err := json.Marshal(rows)
	if err != nil {
		return deterministicSummary(rows, fallbackAnswer)
	}

	prompt := fmt.Sprintf(
		"Summarize the following query result for the user question %q in one or two sentences. "+
			"Only describe what the data actually shows. Respond as JSON: {\"answer\": \"...\", \"suggested_actions\": [\"...\"]}.\n\nData:\n%s",
		question, string(preview),
	)
	raw, err := o.llm.Complete(ctx, []llmclient.Message{{Role: "user", Content: prompt}}, true, maxTokensSummarize, summarizeTemperature)
	if err != nil {
		o.logger.Debug().Err(err).Msg("summary call failed, using deterministic aggregate")
		return deterministicSummary(rows, fallbackAnswer)
	}

	var summary summaryEnvelope
	if err := json.Unmarshal([]byte(raw), &summary); err != nil || strings.TrimSpace(summary.Answer) == "" {
		return deterministicSummary(rows, fallbackAnswer)
	}
	return summary.Answer
}

func deterministicSummary(rows []map[string]any, fallbackAnswer string) string {
	if fallbackAnswer != "" {
		return fallbackAnswer
	}
	return fmt.Sprintf("Found %d matching record(s).", len(rows))
}

// fallback builds the fixed safe response used whenever the pipeline
// can't complete normally — an unsafe query, a classification or LLM
// failure, or a rejected generated query.
func (o *Orchestrator) fallback(queryType string) AssistantResponse {
	resp := AssistantResponse{
		Answer:    "Sorry I cannot assist with that",
		UIType:    UITypeText,
		QueryType: queryType,
	}
	resp.UIBlock = BuildUIBlock(resp.UIType, resp.ChartType, resp.Answer, resp.Data)
	return resp
}

// recordPopular is the background, best-effort enqueue described in the
// state machine's side effect: failures are logged and swallowed, never
// surfaced to the caller whose turn already completed.
func (o *Orchestrator) recordPopular(question string) {
	ctx, cancel := context.WithTimeout(context.Background(), popularSaveTimeout)
	defer cancel()
	if _, err := o.popular.Save(ctx, question); err != nil {
		o.logger.Debug().Err(err).Msg("popular query save failed")
	}
}

func parseEnvelope(raw string) (llmEnvelope, bool) {
	var env llmEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return llmEnvelope{}, false
	}
	if strings.TrimSpace(env.Answer) == "" {
		return llmEnvelope{}, false
	}
	return env, true
}

func resolveUIType(raw string) UIType {
	if t, ok := validUITypes[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return t
	}
	return UITypeText
}

func capActions(actions []string) []string {
	if len(actions) > maxSuggestedActions {
		return actions[:maxSuggestedActions]
	}
	return actions
}
