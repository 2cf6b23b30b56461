package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gurwnx222/research-publication-portal/pkg/config"
	appErrors "github.com/gurwnx222/research-publication-portal/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(config.UpstreamConfig{BaseURL: server.URL, Timeout: 2 * time.Second}, zap.NewNop())
	return client, server
}

func TestAuthorByEmployeeIDFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/authors/employee-id", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "authorBio": {"author_name": "Dr. Chen", "department": "Marine Biology"}}`))
	}))

	lookup, err := client.AuthorByEmployeeID(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, lookup.Exists)
	assert.Equal(t, "Dr. Chen", lookup.AuthorName)
	assert.Equal(t, "Marine Biology", lookup.Department)
}

func TestAuthorByEmployeeIDNotFoundStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	lookup, err := client.AuthorByEmployeeID(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, lookup.Exists)
}

func TestAuthorByEmployeeIDNotFoundBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "message": "no author for this employee"}`))
	}))

	lookup, err := client.AuthorByEmployeeID(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, lookup.Exists)
}

func TestAuthorByEmployeeIDServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": true, "message": "boom"}`))
	}))

	_, err := client.AuthorByEmployeeID(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrLookupFailed))
}

func TestAuthorByEmployeeIDTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	client := NewClient(config.UpstreamConfig{BaseURL: server.URL, Timeout: time.Second}, zap.NewNop())

	_, err := client.AuthorByEmployeeID(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrLookupFailed))
}

func TestPublicationsScopedParams(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/publications", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "Physics", r.URL.Query().Get("department"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"publications": [{"title": "Dark Matter Surveys"}], "totalPages": 3, "totalPublications": 27}`))
	}))

	page, err := client.Publications(context.Background(), ListOptions{Page: 2, Limit: 10, Department: "Physics"})
	require.NoError(t, err)
	require.Len(t, page.Publications, 1)
	assert.Equal(t, "Dark Matter Surveys", page.Publications[0].DisplayTitle())
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 27, page.TotalPublications)
}

func TestPublicationsEmptyListNeverNil(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"totalPages": 0, "totalPublications": 0}`))
	}))

	page, err := client.Publications(context.Background(), ListOptions{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, page.Publications)
	assert.Empty(t, page.Publications)
}

func TestSearchPublicationsTermRoundTrip(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/publications/text-search", r.URL.Path)
		assert.Equal(t, "quantum computing", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"publications": [], "totalPages": 0, "totalPublications": 0}`))
	}))

	_, err := client.SearchPublications(context.Background(), "quantum computing", 1, 10)
	require.NoError(t, err)
}

func TestSearchPublicationsServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"message": "search backend down"}`))
	}))

	_, err := client.SearchPublications(context.Background(), "quantum", 1, 10)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrQueryFailed))
	assert.Contains(t, appErrors.FromError(err).Message, "search backend down")
}
