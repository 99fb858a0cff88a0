package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/kinnect/kinnect-chat/backend/internal/model/persona"
)

// ServiceConfig tunes session lifetime.
type ServiceConfig struct {
	// TTL is how long an untouched session survives. Zero keeps sessions until deleted.
	TTL time.Duration
	// CleanupInterval is how often expired sessions are purged. Zero disables the janitor.
	CleanupInterval time.Duration
	// ExchangeTimeout bounds each backend round trip.
	ExchangeTimeout time.Duration
}

// Service keeps the live session controllers, one per browser tab.
type Service struct {
	cache     *cache.Cache
	personas  persona.Store
	completer Completer
	cfg       ServiceConfig
	logger    *zap.Logger
}

// NewService bootstraps the in-memory session registry.
func NewService(personas persona.Store, completer Completer, cfg ServiceConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	s := &Service{
		cache:     cache.New(ttl, cfg.CleanupInterval),
		personas:  personas,
		completer: completer,
		cfg:       cfg,
		logger:    logger.Named("sessions"),
	}
	s.cache.OnEvicted(func(id string, value interface{}) {
		if ctrl, ok := value.(*Controller); ok {
			ctrl.Close()
		}
		s.logger.Debug("session discarded", zap.String("session", id))
	})
	return s
}

// CreateSession provisions a session bound to the default persona.
func (s *Service) CreateSession(_ context.Context) (*Controller, error) {
	id := uuid.NewString()
	ctrl, err := NewController(s.personas, s.completer,
		WithSessionID(id),
		WithLogger(s.logger),
		WithExchangeTimeout(s.cfg.ExchangeTimeout),
	)
	if err != nil {
		return nil, err
	}

	s.cache.Set(id, ctrl, cache.DefaultExpiration)
	s.logger.Info("session created", zap.String("session", id), zap.Int("active", s.cache.ItemCount()))
	return ctrl, nil
}

// GetSession retrieves a live session and extends its lifetime.
func (s *Service) GetSession(_ context.Context, sessionID string) (*Controller, error) {
	value, found := s.cache.Get(sessionID)
	if !found {
		return nil, ErrSessionNotFound
	}
	ctrl := value.(*Controller)
	// Replace only refreshes an entry that is still present, so a session
	// deleted or evicted since the Get is never brought back.
	if err := s.cache.Replace(sessionID, ctrl, cache.DefaultExpiration); err != nil || ctrl.Closed() {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// DeleteSession discards a session, cancelling any pending reply.
func (s *Service) DeleteSession(_ context.Context, sessionID string) error {
	value, found := s.cache.Get(sessionID)
	if !found || value.(*Controller).Closed() {
		return ErrSessionNotFound
	}
	s.cache.Delete(sessionID)
	return nil
}

// Count reports the number of live sessions, including expired ones not yet purged.
func (s *Service) Count() int {
	return s.cache.ItemCount()
}

// Close discards every session.
func (s *Service) Close() {
	for id := range s.cache.Items() {
		s.cache.Delete(id)
	}
}
