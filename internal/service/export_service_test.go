package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gurwnx222/research-publication-portal/internal/models"
	"github.com/gurwnx222/research-publication-portal/pkg/config"
	appErrors "github.com/gurwnx222/research-publication-portal/pkg/errors"
)

type mockQueryService struct {
	pages map[int]*models.PublicationPage
	calls []int
	err   error
}

func (m *mockQueryService) Query(ctx context.Context, grant models.AccessGrant, searchTerm string, page, pageSize int) (*models.PublicationPage, error) {
	m.calls = append(m.calls, page)
	if m.err != nil {
		return nil, m.err
	}
	if result, ok := m.pages[page]; ok {
		return result, nil
	}
	return &models.PublicationPage{Publications: []models.PublicationRecord{}}, nil
}

func TestExportServiceCSV(t *testing.T) {
	queries := &mockQueryService{pages: map[int]*models.PublicationPage{
		1: {
			Publications: []models.PublicationRecord{
				{Title: "Deep Sea Microbiomes", Author: "Dr. Chen", Department: "Marine Biology", Year: "2021"},
				{Title: "", Author: ""},
			},
			TotalPages:        1,
			TotalPublications: 2,
		},
	}}
	svc := NewExportService(queries, config.ExportsConfig{Enabled: true, MaxPages: 5}, zap.NewNop(), nil, nil)

	result, err := svc.Export(context.Background(), models.AccessGrant{Tier: models.TierUniversity}, "", ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasPrefix(result.Filename, "publications_university_"))
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Payload)
	assert.Contains(t, body, "Title,Author,Co-Authors,Journal,ISBN/ISSN,Published,Department")
	assert.Contains(t, body, "Deep Sea Microbiomes")
	assert.Contains(t, body, models.FallbackTitle)
	assert.Contains(t, body, models.FallbackAuthor)
}

func TestExportServicePDF(t *testing.T) {
	queries := &mockQueryService{pages: map[int]*models.PublicationPage{
		1: {
			Publications:      []models.PublicationRecord{{Title: "Dark Matter Surveys", Author: "Dr. Park"}},
			TotalPages:        1,
			TotalPublications: 1,
		},
	}}
	svc := NewExportService(queries, config.ExportsConfig{Enabled: true, MaxPages: 5}, zap.NewNop(), nil, nil)

	result, err := svc.Export(context.Background(), models.AccessGrant{Tier: models.TierAuthor, AuthorName: "Dr. Park", AuthorExists: true}, "", ReportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Payload, []byte("%PDF")))
}

func TestExportServiceWalksAllPages(t *testing.T) {
	queries := &mockQueryService{pages: map[int]*models.PublicationPage{
		1: {Publications: []models.PublicationRecord{{Title: "One"}}, TotalPages: 3, TotalPublications: 3},
		2: {Publications: []models.PublicationRecord{{Title: "Two"}}, TotalPages: 3, TotalPublications: 3},
		3: {Publications: []models.PublicationRecord{{Title: "Three"}}, TotalPages: 3, TotalPublications: 3},
	}}
	svc := NewExportService(queries, config.ExportsConfig{Enabled: true, MaxPages: 5}, zap.NewNop(), nil, nil)

	result, err := svc.Export(context.Background(), models.AccessGrant{Tier: models.TierUniversity}, "", ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, queries.calls)
	assert.Contains(t, string(result.Payload), "Three")
}

func TestExportServiceRespectsPageCap(t *testing.T) {
	pages := map[int]*models.PublicationPage{}
	for i := 1; i <= 10; i++ {
		pages[i] = &models.PublicationPage{
			Publications:      []models.PublicationRecord{{Title: "Page"}},
			TotalPages:        10,
			TotalPublications: 10,
		}
	}
	queries := &mockQueryService{pages: pages}
	svc := NewExportService(queries, config.ExportsConfig{Enabled: true, MaxPages: 2}, zap.NewNop(), nil, nil)

	_, err := svc.Export(context.Background(), models.AccessGrant{Tier: models.TierUniversity}, "", ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, queries.calls)
}

func TestExportServiceDisabled(t *testing.T) {
	svc := NewExportService(&mockQueryService{}, config.ExportsConfig{Enabled: false}, zap.NewNop(), nil, nil)

	_, err := svc.Export(context.Background(), models.AccessGrant{Tier: models.TierUniversity}, "", ReportFormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&mockQueryService{}, config.ExportsConfig{Enabled: true}, zap.NewNop(), nil, nil)

	_, err := svc.Export(context.Background(), models.AccessGrant{Tier: models.TierUniversity}, "", ReportFormat("xlsx"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportServicePropagatesQueryError(t *testing.T) {
	queries := &mockQueryService{err: appErrors.Clone(appErrors.ErrQueryFailed, "")}
	svc := NewExportService(queries, config.ExportsConfig{Enabled: true}, zap.NewNop(), nil, nil)

	_, err := svc.Export(context.Background(), models.AccessGrant{Tier: models.TierUniversity}, "", ReportFormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrQueryFailed))
}
