package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gurwnx222/research-publication-portal/internal/models"
	"github.com/gurwnx222/research-publication-portal/internal/upstream"
	"github.com/gurwnx222/research-publication-portal/pkg/config"
	appErrors "github.com/gurwnx222/research-publication-portal/pkg/errors"
)

type publicationLister interface {
	Publications(ctx context.Context, opts upstream.ListOptions) (*models.PublicationPage, error)
	SearchPublications(ctx context.Context, term string, page, limit int) (*models.PublicationPage, error)
}

// PublicationService composes tier-scoped publication queries against the
// upstream API. Pagination is server-driven throughout: page and limit pass
// through unchanged and the returned totals are trusted verbatim.
type PublicationService struct {
	upstream publicationLister
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      config.ViewerConfig
	pageTTL  time.Duration
}

// NewPublicationService constructs a PublicationService.
func NewPublicationService(lister publicationLister, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg config.ViewerConfig, pageTTL time.Duration) *PublicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	return &PublicationService{
		upstream: lister,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		pageTTL:  pageTTL,
	}
}

// DefaultPageSize returns the configured page size.
func (s *PublicationService) DefaultPageSize() int {
	return s.cfg.PageSize
}

// Query fetches one page of publications visible to the grant. A non-empty
// search term routes to the text-search endpoint for every tier; an empty
// term lists the grant's scope: the whole corpus for university access, the
// grant's department or author name otherwise. A scoped tier whose grant
// lacks its scope value is a configuration error, not an unscoped query.
func (s *PublicationService) Query(ctx context.Context, grant models.AccessGrant, searchTerm string, page, pageSize int) (*models.PublicationPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.cfg.PageSize
	}
	if s.cfg.UpstreamPageMax > 0 && pageSize > s.cfg.UpstreamPageMax {
		pageSize = s.cfg.UpstreamPageMax
	}
	searchTerm = strings.TrimSpace(searchTerm)

	scope, ok := grant.ScopeValue()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrQueryFailed, fmt.Sprintf("%s information not available for this grant", grant.Tier))
	}

	key := s.cacheKey(grant, searchTerm, page, pageSize)
	var cached models.PublicationPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	result, err := s.fetch(ctx, grant, scope, searchTerm, page, pageSize)
	if err != nil {
		return nil, err
	}

	if searchTerm != "" && s.cfg.ScopedSearch {
		result.Publications = filterByScope(result.Publications, grant)
	}

	if err := s.cache.Set(ctx, key, result, s.pageTTL); err != nil {
		s.logger.Debug("publication page cache write failed", zap.Error(err))
	}

	return result, nil
}

func (s *PublicationService) fetch(ctx context.Context, grant models.AccessGrant, scope, searchTerm string, page, pageSize int) (*models.PublicationPage, error) {
	start := time.Now()

	var (
		result   *models.PublicationPage
		err      error
		endpoint string
	)

	if searchTerm != "" {
		endpoint = "search"
		result, err = s.upstream.SearchPublications(ctx, searchTerm, page, pageSize)
	} else {
		endpoint = "list"
		opts := upstream.ListOptions{Page: page, Limit: pageSize}
		switch grant.Tier {
		case models.TierDepartment:
			opts.Department = scope
		case models.TierAuthor:
			opts.Author = scope
		}
		result, err = s.upstream.Publications(ctx, opts)
	}

	if s.metrics != nil {
		s.metrics.ObserveUpstreamRequest(endpoint, err, time.Since(start))
	}
	if err != nil {
		s.logger.Warn("publication query failed",
			zap.String("access_level", string(grant.Tier)),
			zap.String("search", searchTerm),
			zap.Int("page", page),
			zap.Error(err),
		)
		return nil, err
	}

	return result, nil
}

// filterByScope constrains search results to the grant's visible subset. The
// server totals still describe the unfiltered search; only the page content
// narrows.
func filterByScope(records []models.PublicationRecord, grant models.AccessGrant) []models.PublicationRecord {
	scope, ok := grant.ScopeValue()
	if !ok || scope == "" || grant.Tier == models.TierUniversity {
		return records
	}

	filtered := make([]models.PublicationRecord, 0, len(records))
	for _, record := range records {
		switch grant.Tier {
		case models.TierDepartment:
			if strings.EqualFold(record.DisplayDepartment(), scope) {
				filtered = append(filtered, record)
			}
		case models.TierAuthor:
			if matchesAuthor(record, scope) {
				filtered = append(filtered, record)
			}
		}
	}
	return filtered
}

func matchesAuthor(record models.PublicationRecord, author string) bool {
	if strings.EqualFold(record.DisplayAuthor(), author) {
		return true
	}
	for _, co := range record.CoAuthors.Strings() {
		if strings.EqualFold(co, author) {
			return true
		}
	}
	return false
}

func (s *PublicationService) cacheKey(grant models.AccessGrant, searchTerm string, page, pageSize int) string {
	scope, _ := grant.ScopeValue()
	return fmt.Sprintf("portal:pubs:%s:%s:%s:%d:%d",
		grant.Tier,
		url.QueryEscape(scope),
		url.QueryEscape(searchTerm),
		page,
		pageSize,
	)
}
