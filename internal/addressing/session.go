package addressing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/config"
	"chantier_portal_backend/platform/logger"
)

// Session ties a resolver to its owner and expiry bookkeeping.
type Session struct {
	ID       uuid.UUID
	OwnerID  uuid.UUID
	Resolver *Resolver

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Manager owns all live address resolution sessions. Sessions are in-memory
// only: an abandoned modal is garbage, not data, so losing them on restart is
// acceptable and the browser simply reopens the selector.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	geocoder Geocoder
	cfg      config.AddressSessionConfig
	log      *logger.Logger

	stopSweep context.CancelFunc
}

// NewManager creates the session manager and starts the idle sweeper.
func NewManager(geocoder Geocoder, cfg config.AddressSessionConfig, log *logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		sessions:  make(map[uuid.UUID]*Session),
		geocoder:  geocoder,
		cfg:       cfg,
		log:       log,
		stopSweep: cancel,
	}

	go m.sweep(ctx)
	return m
}

// Open creates a session for the user, seeded with the form's current address
// value (all zero for a blank form).
func (m *Manager) Open(ownerID uuid.UUID, initial Selection) *Session {
	session := &Session{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Resolver: NewResolver(m.geocoder, NewMapState(m.cfg), m.cfg.GetAddressDebounce(), initial),
		lastSeen: time.Now(),
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	m.log.Debug("address session opened", "sessionId", session.ID, "userId", ownerID)
	return session
}

// Get returns the session if it exists and belongs to the user. Ownership is
// checked here so handlers cannot forget it.
func (m *Manager) Get(id, ownerID uuid.UUID) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || session.OwnerID != ownerID {
		return nil, apperr.NotFound("address session not found")
	}

	session.touch()
	return session, nil
}

// Close tears down the session and removes it. Missing sessions are ignored so
// a double close from the browser is harmless.
func (m *Manager) Close(id, ownerID uuid.UUID) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok && session.OwnerID == ownerID {
		delete(m.sessions, id)
	} else {
		session = nil
	}
	m.mu.Unlock()

	if session != nil {
		session.Resolver.Close()
	}
}

// Shutdown stops the sweeper and closes every live session.
func (m *Manager) Shutdown() {
	m.stopSweep()

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Resolver.Close()
	}
}

func (m *Manager) sweep(ctx context.Context) {
	ttl := m.cfg.GetAddressSessionTTL()
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-ttl)

			m.mu.Lock()
			var expired []*Session
			for id, s := range m.sessions {
				if s.idleSince().Before(cutoff) {
					expired = append(expired, s)
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()

			for _, s := range expired {
				s.Resolver.Close()
				m.log.Debug("address session expired", "sessionId", s.ID)
			}
		}
	}
}
