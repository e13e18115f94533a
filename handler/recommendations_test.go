package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTopNFallsBackOnMissingOrInvalid(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/recommendations/user/1", nil)
	require.Equal(t, 10, parseTopN(req, 10))

	req = httptest.NewRequest("GET", "/api/recommendations/user/1?top_n=abc", nil)
	require.Equal(t, 10, parseTopN(req, 10))

	req = httptest.NewRequest("GET", "/api/recommendations/user/1?top_n=-3", nil)
	require.Equal(t, 10, parseTopN(req, 10))
}

func TestParseTopNUsesQueryValue(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/recommendations/user/1?top_n=5", nil)
	require.Equal(t, 5, parseTopN(req, 10))
}
