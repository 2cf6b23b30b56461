package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gurwnx222/research-publication-portal/internal/models"
	"github.com/gurwnx222/research-publication-portal/internal/viewer"
	"github.com/gurwnx222/research-publication-portal/pkg/config"
	appErrors "github.com/gurwnx222/research-publication-portal/pkg/errors"
	"github.com/gurwnx222/research-publication-portal/pkg/export"
)

// ReportFormat selects the export rendering.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// exportPageSize is the upstream page size used while walking a scope for
// export; larger than the viewer's page to keep the walk short.
const exportPageSize = 50

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered listing report ready to send.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders a grant's current publication scope as a tabular
// report. It reuses the viewer's query path, so exports see exactly what the
// viewer would: same scoping, same search precedence, same normalization.
type ExportService struct {
	publications viewer.QueryService
	csv          csvRenderer
	pdf          pdfRenderer
	cfg          config.ExportsConfig
	logger       *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(publications viewer.QueryService, cfg config.ExportsConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		publications: publications,
		csv:          csv,
		pdf:          pdf,
		cfg:          cfg,
		logger:       logger,
	}
}

// Export walks the grant's visible scope page by page (bounded by the
// configured cap) and renders it in the requested format.
func (s *ExportService) Export(ctx context.Context, grant models.AccessGrant, searchTerm string, format ReportFormat) (*ExportResult, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled")
	}
	if format != ReportFormatCSV && format != ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	records, err := s.collect(ctx, grant, searchTerm)
	if err != nil {
		return nil, err
	}

	dataset := buildDataset(records)
	title := scopeTitle(grant, searchTerm)

	var payload []byte
	var contentType string
	switch format {
	case ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("publications_%s_%s.%s", grant.Tier, time.Now().UTC().Format("20060102_150405"), format)

	s.logger.Info("publications exported",
		zap.String("access_level", string(grant.Tier)),
		zap.String("format", string(format)),
		zap.Int("records", len(records)),
	)

	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func (s *ExportService) collect(ctx context.Context, grant models.AccessGrant, searchTerm string) ([]models.PublicationRecord, error) {
	var records []models.PublicationRecord

	for page := 1; page <= s.cfg.MaxPages; page++ {
		result, err := s.publications.Query(ctx, grant, searchTerm, page, exportPageSize)
		if err != nil {
			return nil, err
		}
		records = append(records, result.Publications...)
		if page >= result.TotalPages || len(result.Publications) == 0 {
			break
		}
	}

	return records, nil
}

func buildDataset(records []models.PublicationRecord) export.Dataset {
	headers := []string{"Title", "Author", "Co-Authors", "Journal", "ISBN/ISSN", "Published", "Department"}
	rows := make([]map[string]string, 0, len(records))

	for _, record := range records {
		card := viewer.BuildCard(record)
		rows = append(rows, map[string]string{
			"Title":      card.Title,
			"Author":     card.Author,
			"Co-Authors": joinOrDash(card.CoAuthors),
			"Journal":    card.Journal,
			"ISBN/ISSN":  card.Identifier,
			"Published":  card.Published,
			"Department": card.Department,
		})
	}

	return export.Dataset{Headers: headers, Rows: rows}
}

func scopeTitle(grant models.AccessGrant, searchTerm string) string {
	title := "All Publications"
	switch grant.Tier {
	case models.TierDepartment:
		title = "Publications of " + grant.Department
	case models.TierAuthor:
		title = "Publications by " + grant.AuthorName
	}
	if searchTerm != "" {
		title = fmt.Sprintf("%s (search: %q)", title, searchTerm)
	}
	return title
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	out := values[0]
	for _, v := range values[1:] {
		out += ", " + v
	}
	return out
}
