package access

import (
	"errors"
	"sync"
)

// ErrUnauthorized is returned when a principal lacks the role an operation
// requires.
var ErrUnauthorized = errors.New("access: unauthorized")

// Role names an authority granted to principals. Payer/payee self-service
// operations are never role-gated; roles exist for dispute resolution and
// administrative toggles only.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleJudge        Role = "judge"
	RolePauser       Role = "pauser"
	RoleLotteryAdmin Role = "lottery.admin"
)

// Authority answers whether a principal holds a role. Engines depend on this
// interface rather than the concrete manager so tests can substitute fakes.
type Authority interface {
	IsAuthorized(principal [20]byte, role Role) bool
}

// PauseAuthority extends Authority with per-module pause toggles.
type PauseAuthority interface {
	Authority
	Paused(module string) bool
}

// Manager is an in-memory role registry with per-module pause switches.
type Manager struct {
	mu     sync.RWMutex
	grants map[Role]map[[20]byte]struct{}
	paused map[string]bool
}

func NewManager() *Manager {
	return &Manager{
		grants: make(map[Role]map[[20]byte]struct{}),
		paused: make(map[string]bool),
	}
}

// Grant gives principal the role. Granting twice is a no-op.
func (m *Manager) Grant(role Role, principal [20]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	holders, ok := m.grants[role]
	if !ok {
		holders = make(map[[20]byte]struct{})
		m.grants[role] = holders
	}
	holders[principal] = struct{}{}
}

// Revoke removes the role from principal. Revoking an absent grant is a no-op.
func (m *Manager) Revoke(role Role, principal [20]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if holders, ok := m.grants[role]; ok {
		delete(holders, principal)
	}
}

// IsAuthorized implements Authority. Admins hold every role implicitly.
func (m *Manager) IsAuthorized(principal [20]byte, role Role) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if holders, ok := m.grants[role]; ok {
		if _, held := holders[principal]; held {
			return true
		}
	}
	if role == RoleAdmin {
		return false
	}
	if holders, ok := m.grants[RoleAdmin]; ok {
		_, held := holders[principal]
		return held
	}
	return false
}

// Pause disables a module. The caller must hold the pauser role.
func (m *Manager) Pause(module string, by [20]byte) error {
	if !m.IsAuthorized(by, RolePauser) {
		return ErrUnauthorized
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused[module] = true
	return nil
}

// Unpause re-enables a module. The caller must hold the pauser role.
func (m *Manager) Unpause(module string, by [20]byte) error {
	if !m.IsAuthorized(by, RolePauser) {
		return ErrUnauthorized
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.paused, module)
	return nil
}

// Paused implements PauseAuthority.
func (m *Manager) Paused(module string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused[module]
}
