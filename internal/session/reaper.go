package session

import (
	"context"
	"log/slog"
	"time"
)

// Reap ends sessions idle for longer than the configured TTL and returns how
// many were removed.
func (m *Manager) Reap(now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}

	var idle []string
	m.mu.RLock()
	for id, s := range m.sessions {
		s.mu.Lock()
		if now.Sub(s.lastActive) > m.idleTTL {
			idle = append(idle, id)
		}
		s.mu.Unlock()
	}
	m.mu.RUnlock()

	removed := 0
	for _, id := range idle {
		if m.endIfIdle(id, now) {
			removed++
		}
	}
	if removed > 0 {
		slog.Info("idle quiz sessions reaped", "count", removed)
	}
	return removed
}

// endIfIdle removes a session only if it is still idle at removal time, so a
// session touched after the scan survives.
func (m *Manager) endIfIdle(id string, now time.Time) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	s.mu.Lock()
	idle := now.Sub(s.lastActive) > m.idleTTL
	s.mu.Unlock()
	if !idle {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	m.teardown(id, s)
	return true
}

// RunReaper calls Reap periodically until ctx is done.
func (m *Manager) RunReaper(ctx context.Context) {
	if m.idleTTL <= 0 {
		return
	}
	interval := min(m.idleTTL/2, time.Minute)
	if interval <= 0 {
		interval = m.idleTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Reap(m.now())
		}
	}
}
