package session

import (
	"fmt"
	"strings"
	"sync"

	"nbclient/internal/logging"
	"nbclient/internal/transport"
)

// Manager owns one Session per kernel id. It replaces the module-level
// singleton socket of older clients: callers inject a Manager wherever
// kernel lifecycle is handled, so sessions never leak across kernels and
// tests run without global state.
type Manager struct {
	wsBaseURL string
	opts      transport.Options

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. wsBaseURL is the streaming endpoint root,
// e.g. "ws://localhost:8000/ws".
func NewManager(wsBaseURL string, opts transport.Options) *Manager {
	return &Manager{
		wsBaseURL: strings.TrimRight(wsBaseURL, "/"),
		opts:      opts,
		sessions:  make(map[string]*Session),
	}
}

// Get returns the live session for a kernel id, or nil.
func (m *Manager) Get(kernelID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[kernelID]
}

// GetOrCreate returns the session for a kernel, creating it if absent.
// The session is not yet connected; callers decide when to dial.
func (m *Manager) GetOrCreate(kernelID string) (*Session, error) {
	if kernelID == "" {
		return nil, fmt.Errorf("kernel id required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[kernelID]; ok {
		return s, nil
	}

	url := fmt.Sprintf("%s/kernel/%s", m.wsBaseURL, kernelID)
	s := New(kernelID, transport.New(url, m.opts))
	m.sessions[kernelID] = s
	logging.Session("created session for kernel %s (%s)", kernelID, url)
	return s, nil
}

// Remove closes and forgets the session for a kernel id.
func (m *Manager) Remove(kernelID string) {
	m.mu.Lock()
	s, ok := m.sessions[kernelID]
	delete(m.sessions, kernelID)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
}

// CloseAll tears down every live session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
