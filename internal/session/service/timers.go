package service

import (
	"context"
	"errors"
	"fmt"
)

// armInactivityLocked (re)starts the inactivity timer, superseding any pending one.
func (m *Manager) armInactivityLocked() {
	if m.inactivityTimer != nil {
		m.inactivityTimer.Stop()
	}
	m.inactivityGen++
	gen := m.inactivityGen
	m.inactivityTimer = m.clock.AfterFunc(m.inactivityTimeout, func() { m.onInactivity(gen) })
}

// startSweepLocked schedules the periodic sweep unless it is already running.
func (m *Manager) startSweepLocked() {
	if m.sweepTimer != nil {
		return
	}
	m.scheduleSweepLocked()
}

func (m *Manager) scheduleSweepLocked() {
	m.sweepGen++
	gen := m.sweepGen
	m.sweepTimer = m.clock.AfterFunc(m.cfg.SweepInterval, func() { m.onSweep(gen) })
}

// stopTimersLocked cancels both timers and invalidates callbacks already in flight.
func (m *Manager) stopTimersLocked() {
	if m.inactivityTimer != nil {
		m.inactivityTimer.Stop()
		m.inactivityTimer = nil
	}
	if m.sweepTimer != nil {
		m.sweepTimer.Stop()
		m.sweepTimer = nil
	}
	m.inactivityGen++
	m.sweepGen++
}

func (m *Manager) onInactivity(gen uint64) {
	defer m.recoverCallback("inactivity")
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CallbackTimeout)
	defer cancel()
	err := m.secureLogoutIf(ctx, false, reasonInactivity, func() bool { return m.inactivityDueLocked(gen) })
	switch {
	case errors.Is(err, errLogoutSkipped):
		return
	case err != nil:
		m.log.Warn().Err(err).Msg("inactivity logout incomplete")
	}
}

// inactivityDueLocked reports whether the timer of generation gen still stands: no newer
// arm or stop happened and the session has really been idle for the full timeout.
func (m *Manager) inactivityDueLocked(gen uint64) bool {
	return gen == m.inactivityGen && m.current != nil &&
		m.clock.Now().Sub(m.lastActivity) >= m.inactivityTimeout
}

func (m *Manager) onSweep(gen uint64) {
	defer m.recoverCallback("sweep")
	m.mu.Lock()
	if gen != m.sweepGen {
		m.mu.Unlock()
		return
	}
	m.scheduleSweepLocked()
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CallbackTimeout)
	defer cancel()
	if _, err := m.CleanupExpiredSessions(ctx); err != nil {
		m.log.Warn().Err(err).Msg("periodic sweep failed")
	}
}

func (m *Manager) recoverCallback(name string) {
	if r := recover(); r != nil {
		m.log.Error().Str("timer", name).Err(fmt.Errorf("panic: %v", r)).Msg("timer callback panicked")
	}
}
