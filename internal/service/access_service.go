package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gurwnx222/research-publication-portal/internal/models"
	"github.com/gurwnx222/research-publication-portal/internal/upstream"
	"github.com/gurwnx222/research-publication-portal/pkg/config"
	appErrors "github.com/gurwnx222/research-publication-portal/pkg/errors"
)

type authorDirectory interface {
	AuthorByEmployeeID(ctx context.Context, employeeID int) (*upstream.AuthorLookup, error)
}

// AccessService resolves viewer access grants. The per-tier passwords are a
// product-level UX gate shared with every viewer, not an authentication
// boundary; the only server-verified fact is author existence for author-tier
// access.
type AccessService struct {
	directory authorDirectory
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.AccessConfig
	authorTTL time.Duration
}

// NewAccessService constructs an AccessService instance.
func NewAccessService(directory authorDirectory, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg config.AccessConfig, authorTTL time.Duration) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AccessService{
		directory: directory,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		authorTTL: authorTTL,
	}
}

// Authenticate validates the login form and resolves an access grant.
// Employee ID and password failures are decided locally; the upstream author
// lookup only runs once those checks pass.
func (s *AccessService) Authenticate(ctx context.Context, req models.AuthenticateRequest) (*models.AccessGrant, error) {
	// The employee ID is checked first so an empty or non-numeric value gets
	// its own message instead of the generic payload error.
	employeeID, err := strconv.Atoi(req.EmployeeID)
	if err != nil || employeeID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidEmployeeID, "")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	if !req.AccessLevel.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown access level %q", req.AccessLevel))
	}

	expected := s.tierPassword(req.AccessLevel)
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(expected)) != 1 {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	lookup, err := s.lookupAuthor(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	if req.AccessLevel == models.TierAuthor && !lookup.Exists {
		return nil, appErrors.Clone(appErrors.ErrAuthorNotFound, "")
	}

	grant := &models.AccessGrant{
		EmployeeID:   employeeID,
		Tier:         req.AccessLevel,
		TierLabel:    req.AccessLevel.Label(),
		AuthorExists: lookup.Exists,
	}
	if lookup.Exists {
		grant.AuthorName = lookup.AuthorName
		grant.Department = lookup.Department
	}

	s.logger.Info("viewer access granted",
		zap.Int("employee_id", employeeID),
		zap.String("access_level", string(grant.Tier)),
		zap.Bool("author_exists", grant.AuthorExists),
	)

	return grant, nil
}

// lookupAuthor checks the author directory, going through the cache when it
// is enabled. Every tier runs the lookup for grant enrichment; only the
// author tier treats absence as a denial.
func (s *AccessService) lookupAuthor(ctx context.Context, employeeID int) (*upstream.AuthorLookup, error) {
	key := fmt.Sprintf("portal:author:%d", employeeID)

	var cached upstream.AuthorLookup
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	start := time.Now()
	lookup, err := s.directory.AuthorByEmployeeID(ctx, employeeID)
	if s.metrics != nil {
		s.metrics.ObserveUpstreamRequest("author_lookup", err, time.Since(start))
	}
	if err != nil {
		s.logger.Warn("author lookup failed", zap.Int("employee_id", employeeID), zap.Error(err))
		return nil, err
	}

	if err := s.cache.Set(ctx, key, lookup, s.authorTTL); err != nil {
		s.logger.Debug("author lookup cache write failed", zap.Error(err))
	}

	return lookup, nil
}

func (s *AccessService) tierPassword(tier models.AccessTier) string {
	switch tier {
	case models.TierUniversity:
		return s.cfg.UniversityPassword
	case models.TierDepartment:
		return s.cfg.DepartmentPassword
	case models.TierAuthor:
		return s.cfg.AuthorPassword
	}
	return ""
}
