package signature

import "sync"

// Store lets a principal pre-register a digest as "I will have signed this"
// and revoke it later. Validation is pure membership: the signature bytes are
// ignored. Registration and revocation are idempotent no-ops when repeated.
type Store struct {
	mu         sync.RWMutex
	registered map[[32]byte]struct{}
}

func NewStore() *Store {
	return &Store{registered: make(map[[32]byte]struct{})}
}

// Register marks the digest as valid. Registering twice is a no-op.
func (s *Store) Register(digest [32]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered[digest] = struct{}{}
}

// Revoke removes the digest. Revoking an unknown digest is a no-op.
func (s *Store) Revoke(digest [32]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registered, digest)
}

// IsValidSignature implements Validator over registration membership.
func (s *Store) IsValidSignature(digest [32]byte, _ []byte) [4]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.registered[digest]; ok {
		return MagicValue
	}
	return [4]byte{}
}

// Registry maps identities to delegated validators. It satisfies
// ValidatorRegistry for the Authorizer.
type Registry struct {
	mu         sync.RWMutex
	validators map[[20]byte]Validator
}

func NewRegistry() *Registry {
	return &Registry{validators: make(map[[20]byte]Validator)}
}

// Bind associates a delegated validator with an identity, replacing any
// previous binding.
func (r *Registry) Bind(identity [20]byte, v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v == nil {
		delete(r.validators, identity)
		return
	}
	r.validators[identity] = v
}

// Validator implements ValidatorRegistry.
func (r *Registry) Validator(identity [20]byte) (Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[identity]
	return v, ok
}
