package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gurwnx222/research-publication-portal/internal/models"
	"github.com/gurwnx222/research-publication-portal/internal/viewer"
	"github.com/gurwnx222/research-publication-portal/pkg/config"
	appErrors "github.com/gurwnx222/research-publication-portal/pkg/errors"
)

// Session is one live viewer session: the resolved grant plus the viewer
// state browsing under it. Sessions exist only in memory; a restart logs
// every viewer out, which matches the product's no-persistence rule.
type Session struct {
	ID        string
	Grant     models.AccessGrant
	CreatedAt time.Time
	Viewer    *viewer.Controller
}

// SessionService owns the in-memory session registry and the signed tokens
// that reference it. Login replaces nothing and shares nothing between
// sessions; Logout fully resets the session's viewer state before dropping it.
type SessionService struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	cfg       config.SessionConfig
	logger    *zap.Logger
	newViewer func(models.AccessGrant) *viewer.Controller
}

// NewSessionService constructs a SessionService. newViewer builds the viewer
// controller bound to a freshly granted session.
func NewSessionService(cfg config.SessionConfig, logger *zap.Logger, newViewer func(models.AccessGrant) *viewer.Controller) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions:  make(map[string]*Session),
		cfg:       cfg,
		logger:    logger,
		newViewer: newViewer,
	}
}

// Login registers a new session for the grant and issues its token.
func (s *SessionService) Login(grant models.AccessGrant) (*models.SessionToken, error) {
	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		Grant:     grant,
		CreatedAt: now,
		Viewer:    s.newViewer(grant),
	}

	claims := models.SessionClaims{
		SessionID: session.ID,
		Grant:     grant,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   fmt.Sprintf("%d", grant.EmployeeID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Info("viewer session created",
		zap.String("session_id", session.ID),
		zap.String("access_level", string(grant.Tier)),
	)

	return &models.SessionToken{
		Token:     token,
		ExpiresIn: int64(s.cfg.TTL.Seconds()),
		IssuedAt:  now,
		Grant:     grant,
	}, nil
}

// Resolve validates a session token and returns the live session it names.
// A valid signature over a revoked or expired session still fails: the
// registry is authoritative.
func (s *SessionService) Resolve(tokenString string) (*Session, error) {
	claims := &models.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session token")
	}

	s.mu.RLock()
	session, ok := s.sessions[claims.SessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrSessionExpired, "")
	}

	return session, nil
}

// Logout revokes the session and resets its viewer state back to initial
// values. Unknown session IDs are a no-op; logout is idempotent.
func (s *SessionService) Logout(sessionID string) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	session.Viewer.Reset()
	s.logger.Info("viewer session ended", zap.String("session_id", sessionID))
}

// ActiveSessions reports the registry size, mainly for tests and logging.
func (s *SessionService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
