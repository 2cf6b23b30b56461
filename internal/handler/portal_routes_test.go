package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalmiddleware "github.com/gurwnx222/research-publication-portal/internal/middleware"
	"github.com/gurwnx222/research-publication-portal/internal/models"
	"github.com/gurwnx222/research-publication-portal/internal/service"
	"github.com/gurwnx222/research-publication-portal/internal/upstream"
	"github.com/gurwnx222/research-publication-portal/internal/viewer"
	"github.com/gurwnx222/research-publication-portal/pkg/config"
)

type directoryStub struct {
	lookup upstream.AuthorLookup
}

func (d *directoryStub) AuthorByEmployeeID(ctx context.Context, employeeID int) (*upstream.AuthorLookup, error) {
	cp := d.lookup
	return &cp, nil
}

type queryStub struct {
	mu    sync.Mutex
	page  *models.PublicationPage
	terms []string
	pages []int
}

func (q *queryStub) Query(ctx context.Context, grant models.AccessGrant, searchTerm string, page, pageSize int) (*models.PublicationPage, error) {
	q.mu.Lock()
	q.terms = append(q.terms, searchTerm)
	q.pages = append(q.pages, page)
	q.mu.Unlock()
	if q.page != nil {
		return q.page, nil
	}
	return &models.PublicationPage{Publications: []models.PublicationRecord{}}, nil
}

func (q *queryStub) seenTerms() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.terms...)
}

var testPasswords = config.AccessConfig{
	UniversityPassword: "university123",
	DepartmentPassword: "department123",
	AuthorPassword:     "author123",
}

func buildPortalRouter(directory *directoryStub, queries *queryStub) *gin.Engine {
	gin.SetMode(gin.TestMode)

	viewerCfg := config.ViewerConfig{PageSize: 10, SearchDebounce: 10 * time.Millisecond}
	accessSvc := service.NewAccessService(directory, nil, nil, validator.New(), zap.NewNop(), testPasswords, 0)
	sessionSvc := service.NewSessionService(
		config.SessionConfig{Secret: "test-secret", TTL: time.Hour, Issuer: "portal-test"},
		zap.NewNop(),
		func(grant models.AccessGrant) *viewer.Controller {
			return viewer.NewController(queries, grant, viewerCfg, zap.NewNop())
		},
	)
	exportSvc := service.NewExportService(queries, config.ExportsConfig{Enabled: true, MaxPages: 5}, zap.NewNop(), nil, nil)

	portal := NewPortalHandler(accessSvc, sessionSvc)
	publications := NewPublicationHandler(exportSvc)

	router := gin.New()
	router.POST("/portal/login", portal.Login)
	guarded := router.Group("/portal", internalmiddleware.Session(sessionSvc))
	guarded.POST("/logout", portal.Logout)
	guarded.GET("/publications", publications.List)
	guarded.POST("/publications/search", publications.SearchInput)
	guarded.GET("/publications/export", publications.Export)
	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func loginAs(t *testing.T, router *gin.Engine, tier models.AccessTier, password string) string {
	t.Helper()
	body := bytes.NewBufferString(`{"employee_id":"42","access_level":"` + string(tier) + `","password":"` + password + `"}`)
	req, _ := http.NewRequest(http.MethodPost, "/portal/login", body)
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope struct {
		Data models.SessionToken `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.Token)
	return envelope.Data.Token
}

func TestPortalLoginSuccess(t *testing.T) {
	router := buildPortalRouter(&directoryStub{}, &queryStub{})
	token := loginAs(t, router, models.TierUniversity, "university123")
	assert.NotEmpty(t, token)
}

func TestPortalLoginWrongPassword(t *testing.T) {
	router := buildPortalRouter(&directoryStub{}, &queryStub{})

	req, _ := http.NewRequest(http.MethodPost, "/portal/login", bytes.NewBufferString(`{"employee_id":"42","access_level":"university","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "INVALID_CREDENTIALS")
}

func TestPortalLoginAuthorNotFound(t *testing.T) {
	router := buildPortalRouter(&directoryStub{lookup: upstream.AuthorLookup{Exists: false}}, &queryStub{})

	req, _ := http.NewRequest(http.MethodPost, "/portal/login", bytes.NewBufferString(`{"employee_id":"42","access_level":"author","password":"author123"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)
	require.Equal(t, http.StatusForbidden, resp.Code)
	assert.Contains(t, resp.Body.String(), "AUTHOR_NOT_FOUND")
}

func TestPortalLoginMalformedJSON(t *testing.T) {
	router := buildPortalRouter(&directoryStub{}, &queryStub{})

	req, _ := http.NewRequest(http.MethodPost, "/portal/login", bytes.NewBufferString(`{"employee_id":`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPublicationsRequireSession(t *testing.T) {
	router := buildPortalRouter(&directoryStub{}, &queryStub{})

	req, _ := http.NewRequest(http.MethodGet, "/portal/publications", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestPublicationsRejectInvalidToken(t *testing.T) {
	router := buildPortalRouter(&directoryStub{}, &queryStub{})

	req, _ := http.NewRequest(http.MethodGet, "/portal/publications", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp := performRequest(router, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestPublicationsList(t *testing.T) {
	queries := &queryStub{page: &models.PublicationPage{
		Publications:      []models.PublicationRecord{{Title: "Deep Sea Microbiomes", Author: "Dr. Chen"}},
		TotalPages:        1,
		TotalPublications: 1,
	}}
	router := buildPortalRouter(&directoryStub{}, queries)
	token := loginAs(t, router, models.TierUniversity, "university123")

	req, _ := http.NewRequest(http.MethodGet, "/portal/publications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"state":"populated"`)
	assert.Contains(t, resp.Body.String(), "Deep Sea Microbiomes")
	assert.Contains(t, resp.Body.String(), `"total_count":1`)
}

func TestPublicationsListSearchAndPage(t *testing.T) {
	queries := &queryStub{}
	router := buildPortalRouter(&directoryStub{}, queries)
	token := loginAs(t, router, models.TierUniversity, "university123")

	req, _ := http.NewRequest(http.MethodGet, "/portal/publications?search=quantum&page=3", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"state":"empty"`)
	assert.Contains(t, resp.Body.String(), "No publications found matching your search.")

	require.Len(t, queries.terms, 1)
	assert.Equal(t, "quantum", queries.terms[0])
	assert.Equal(t, 3, queries.pages[0])
}

func TestPublicationsListInvalidPage(t *testing.T) {
	router := buildPortalRouter(&directoryStub{}, &queryStub{})
	token := loginAs(t, router, models.TierUniversity, "university123")

	req, _ := http.NewRequest(http.MethodGet, "/portal/publications?page=zero", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPublicationsRetry(t *testing.T) {
	queries := &queryStub{}
	router := buildPortalRouter(&directoryStub{}, queries)
	token := loginAs(t, router, models.TierUniversity, "university123")

	req, _ := http.NewRequest(http.MethodGet, "/portal/publications?search=quantum", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	performRequest(router, req)

	req, _ = http.NewRequest(http.MethodGet, "/portal/publications?retry=true", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)

	require.Len(t, queries.terms, 2)
	assert.Equal(t, "quantum", queries.terms[1])
}

func TestPublicationsSearchInputDebounced(t *testing.T) {
	queries := &queryStub{page: &models.PublicationPage{
		Publications:      []models.PublicationRecord{{Title: "Quantum Entanglement"}},
		TotalPages:        1,
		TotalPublications: 1,
	}}
	router := buildPortalRouter(&directoryStub{}, queries)
	token := loginAs(t, router, models.TierUniversity, "university123")

	for _, term := range []string{"q", "qu", "quantum"} {
		req, _ := http.NewRequest(http.MethodPost, "/portal/publications/search", bytes.NewBufferString(`{"term":"`+term+`"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusAccepted, resp.Code)
	}

	assert.Eventually(t, func() bool {
		req, _ := http.NewRequest(http.MethodGet, "/portal/publications?poll=true", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := performRequest(router, req)
		return resp.Code == http.StatusOK &&
			strings.Contains(resp.Body.String(), `"state":"populated"`) &&
			strings.Contains(resp.Body.String(), `"search_term":"quantum"`)
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"quantum"}, queries.seenTerms())
}

func TestPublicationsPollDoesNotQuery(t *testing.T) {
	queries := &queryStub{}
	router := buildPortalRouter(&directoryStub{}, queries)
	token := loginAs(t, router, models.TierUniversity, "university123")

	req, _ := http.NewRequest(http.MethodGet, "/portal/publications?poll=true", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"state":"loading"`)
	assert.Empty(t, queries.terms)
}

func TestPublicationsExportCSV(t *testing.T) {
	queries := &queryStub{page: &models.PublicationPage{
		Publications:      []models.PublicationRecord{{Title: "Dark Matter Surveys"}},
		TotalPages:        1,
		TotalPublications: 1,
	}}
	router := buildPortalRouter(&directoryStub{}, queries)
	token := loginAs(t, router, models.TierUniversity, "university123")

	req, _ := http.NewRequest(http.MethodGet, "/portal/publications/export?format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/csv", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, resp.Body.String(), "Dark Matter Surveys")
}

func TestPublicationsExportUnsupportedFormat(t *testing.T) {
	router := buildPortalRouter(&directoryStub{}, &queryStub{})
	token := loginAs(t, router, models.TierUniversity, "university123")

	req, _ := http.NewRequest(http.MethodGet, "/portal/publications/export?format=xlsx", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	router := buildPortalRouter(&directoryStub{}, &queryStub{})
	token := loginAs(t, router, models.TierUniversity, "university123")

	req, _ := http.NewRequest(http.MethodPost, "/portal/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusNoContent, resp.Code)

	req, _ = http.NewRequest(http.MethodGet, "/portal/publications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = performRequest(router, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "SESSION_EXPIRED")
}
