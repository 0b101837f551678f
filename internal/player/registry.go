// Package player implements the process-wide identity registry: the
// dual UUID/lower-cased-name index over live admitted sessions, with the
// at-most-one-session-per-identity invariant described by the spec.
package player

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Session is the subset of a live connection the registry needs: enough to
// identify it and to disconnect it when it is displaced.
type Session interface {
	ID() uuid.UUID
	Username() string
	Disconnect(reason string)
}

// AlreadyConnectedError is returned by Register when neither index is free
// and kick-existing replacement is not requested.
type AlreadyConnectedError struct{}

func (AlreadyConnectedError) Error() string { return "player: already connected" }

// Registry is the two-index PlayerRegistry described by the spec: by UUID
// and by lower-cased name, updated together under one mutex so the two
// indices can never disagree about which sessions are live.
type Registry struct {
	mu     sync.RWMutex
	byUUID map[uuid.UUID]Session
	byName map[string]Session
}

func NewRegistry() *Registry {
	return &Registry{
		byUUID: map[uuid.UUID]Session{},
		byName: map[string]Session{},
	}
}

// Len returns the number of currently-registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUUID)
}

// ByUUID looks up a live session by identity.
func (r *Registry) ByUUID(id uuid.UUID) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byUUID[id]
	return s, ok
}

// ByName looks up a live session by case-insensitive username.
func (r *Registry) ByName(name string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[strings.ToLower(name)]
	return s, ok
}

// Range calls fn for every currently-registered session. fn must not call
// back into the Registry.
func (r *Registry) Range(fn func(Session)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.byUUID {
		fn(s)
	}
}

// Register admits s into both indices atomically. If an existing session
// already holds s's UUID:
//   - with kickExisting: the existing session is disconnected with a
//     duplicate-login reason and s atomically replaces it.
//   - without: registration fails with AlreadyConnectedError and s is left
//     unregistered; the caller is expected to kick it.
//
// A name collision under a *different* UUID is handled the same way:
// without kickExisting registration fails, with it the session holding the
// case-folded name is disconnected and displaced from both indices.
func (r *Registry) Register(s Session, kickExisting bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(s.Username())

	if existing, ok := r.byUUID[s.ID()]; ok {
		if !kickExisting {
			return AlreadyConnectedError{}
		}
		delete(r.byUUID, existing.ID())
		delete(r.byName, strings.ToLower(existing.Username()))
		existing.Disconnect("You logged in from another location.")
	} else if existing, ok := r.byName[name]; ok && existing.ID() != s.ID() {
		if !kickExisting {
			return AlreadyConnectedError{}
		}
		delete(r.byUUID, existing.ID())
		delete(r.byName, strings.ToLower(existing.Username()))
		existing.Disconnect("You logged in from another location.")
	}

	r.byUUID[s.ID()] = s
	r.byName[name] = s
	return nil
}

// Unregister removes s from both indices, exactly once. A no-op if s is not
// the session currently occupying its identity slot (it was already
// displaced by a newer login).
func (r *Registry) Unregister(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byUUID[s.ID()]; ok && cur == s {
		delete(r.byUUID, s.ID())
		delete(r.byName, strings.ToLower(s.Username()))
	}
}
