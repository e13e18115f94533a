package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/autofi/ai-engine/caching"
	"github.com/autofi/ai-engine/feedback"
	"github.com/autofi/ai-engine/handler"
	"github.com/autofi/ai-engine/middleware"
	"github.com/autofi/ai-engine/models"
	"github.com/autofi/ai-engine/popularquery"
	"github.com/autofi/ai-engine/recommend"
	"github.com/autofi/ai-engine/router"
	"github.com/autofi/ai-engine/security"
	"github.com/autofi/ai-engine/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testSecret = "integration-secret"

// newTestServer assembles the full route tree over seeded in-memory
// stores and a preloaded model registry — no Postgres, Redis or LLM
// behind it, so it exercises the handlers, middleware chain and
// recommendation pipeline end to end.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zerolog.Nop()
	cache := caching.New(nil, log)

	reg := models.NewPreloaded(log, nil, map[string]any{
		models.NameVehicleSimilarity: models.SimilarityMap{
			10: {
				{VehicleID: 22, Score: 0.91},
				{VehicleID: 7, Score: 0.88},
				{VehicleID: 3, Score: 0.70},
			},
		},
		models.NameUserSimilarity: models.SimilarityMap{
			10: {{VehicleID: 22, Score: 0.9}},
			11: {{VehicleID: 7, Score: 0.8}},
			12: {{VehicleID: 3, Score: 0.6}},
		},
		models.NameCollaborative: &models.CollabModel{
			UserRowIndex:    map[int64]int{42: 0},
			UserFeatures:    [][]float64{{1, 0}},
			VehicleFeatures: [][]float64{{1, 0}, {0.5, 0}},
			VehicleIDs:      []int64{22, 7},
		},
	})

	users := store.NewUserStore(nil)
	users.SeedExists(42)
	users.SeedInteractions(42, []store.Interaction{
		{VehicleID: 10, Weight: 3},
		{VehicleID: 11, Weight: 2},
		{VehicleID: 12, Weight: 1},
	})

	vehicles := store.NewVehicleStore(nil, nil, "", 0)
	for _, id := range []int64{3, 7, 10, 22} {
		vehicles.Seed(store.Vehicle{ID: id, Make: "Toyota", Model: "Camry", Year: 2020})
	}

	content := recommend.NewContentRecommender(reg, vehicles, cache)
	collab := recommend.NewCollabRecommender(reg)
	hybrid := recommend.NewHybridRecommender(reg, users, vehicles, content, collab)
	orch := recommend.NewOrchestrator(users, vehicles, cache, content, hybrid, collab)

	verifier := security.NewVerifier(testSecret, "HS256", "")
	authMW := middleware.NewAuthMiddleware(verifier, log)
	rateLimiter := middleware.NewRateLimiter(log, false, 10, 10)

	handlers := router.Handlers{
		Recommendations: handler.NewRecommendationsHandler(orch, nil, log),
		Assistant:       handler.NewAssistantHandler(nil, users, cache, false, log),
		Feedback:        handler.NewFeedbackHandler(feedback.New(nil, log), log),
		Popular:         handler.NewPopularQueryHandler(popularquery.New(nil, nil, 0, log), log),
		Health:          handler.NewHealthHandler(nil, reg),
	}

	srv := httptest.NewServer(router.New(handlers, authMW, rateLimiter, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func bearerToken(t *testing.T, userID string, admin bool) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"admin": admin,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doGet(t *testing.T, url, auth string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestSimilarVehiclesEndToEnd(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doGet(t, srv.URL+"/api/recommendations/similar/10?top_n=2", bearerToken(t, "42", false))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	items := body["items"].([]any)
	require.Len(t, items, 2)

	first := items[0].(map[string]any)
	second := items[1].(map[string]any)
	require.Equal(t, float64(22), first["vehicle_id"])
	require.Equal(t, 0.91, first["score"])
	require.Equal(t, float64(7), second["vehicle_id"])
	require.Equal(t, 0.88, second["score"])
	require.Equal(t, "Toyota", first["features"].(map[string]any)["make"])
}

func TestSimilarVehiclesUnknownVehicleIs404(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := doGet(t, srv.URL+"/api/recommendations/similar/999", bearerToken(t, "42", false))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUserRecommendationsColdStartEndToEnd(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doGet(t, srv.URL+"/api/recommendations/user/42?top_n=5", bearerToken(t, "42", false))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hybrid", body["model_type"])

	items := body["items"].([]any)
	require.NotEmpty(t, items)
	require.LessOrEqual(t, len(items), 5)

	prev := 2.0
	seen := map[float64]bool{}
	for _, it := range items {
		item := it.(map[string]any)
		id := item["vehicle_id"].(float64)
		require.False(t, seen[id], "duplicate vehicle id %v", id)
		seen[id] = true
		score := item["score"].(float64)
		require.LessOrEqual(t, score, prev)
		prev = score
	}
}

func TestUserRecommendationsRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/recommendations/user/42", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUserRecommendationsCrossUserForbidden(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doGet(t, srv.URL+"/api/recommendations/user/42", bearerToken(t, "7", false))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUserRecommendationsAdminMayCrossUsers(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doGet(t, srv.URL+"/api/recommendations/user/42", bearerToken(t, "7", true))
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAssistantDisabledReturns503(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/ai/query", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", bearerToken(t, "42", false))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthReportsModelAndDBState(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doGet(t, srv.URL+"/health", "")
	// No database behind this server, so health reports unavailable while
	// the model flags stay truthful.
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, false, body["db"])

	loaded := body["ml_models_loaded"].(map[string]any)
	require.Equal(t, true, loaded["collaborative"])
	require.Equal(t, true, loaded["vehicle_similarity"])
	require.Equal(t, true, loaded["user_similarity"])
}
