// Package session tracks which caller is working on which repository.
//
// A session is the exclusive write lease for one (caller, repository
// root) pair. The registry is process-local and in-memory: sessions
// are not persisted, and a crashed caller simply leaves an idle
// session behind to expire. Expiry is checked lazily on access, so no
// background goroutine is needed.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTimeout is used when the registry is built without an
// explicit idle duration.
const DefaultIdleTimeout = 30 * time.Minute

var (
	// ErrSessionNotFound means the id is unknown or the session has
	// idled out. Callers recover by starting a new session.
	ErrSessionNotFound = errors.New("session not found or expired")

	// ErrSessionConflict means the caller already holds a live session
	// for the same repository root.
	ErrSessionConflict = errors.New("session already active for this caller and repository")

	// ErrSessionBusy means another operation on the same session is
	// still in flight.
	ErrSessionBusy = errors.New("session is busy with another operation")
)

// Session is the caller-visible state of one documentation session.
// Registry methods return copies; mutating a returned Session has no
// effect on the registry.
type Session struct {
	ID           string
	CallerID     string
	RootPath     string
	ActiveBranch string
	TargetFile   string
	StartedAt    time.Time
	LastTouched  time.Time
}

type entry struct {
	Session
	busy bool
}

// Registry owns every live session in this server process.
type Registry struct {
	mu       sync.Mutex
	idle     time.Duration
	sessions map[string]*entry // session id -> entry
	owners   map[string]string // caller+root -> session id
}

// NewRegistry creates a registry with the given idle expiry.
// Non-positive durations fall back to DefaultIdleTimeout.
func NewRegistry(idle time.Duration) *Registry {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Registry{
		idle:     idle,
		sessions: make(map[string]*entry),
		owners:   make(map[string]string),
	}
}

// Start opens a session for the caller on the given repository root.
// It fails with ErrSessionConflict while a live session for the same
// pair exists; expired sessions do not block a new start.
func (r *Registry) Start(callerID, rootPath string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeExpiredLocked()

	key := ownerKey(callerID, rootPath)
	if id, ok := r.owners[key]; ok {
		return Session{}, fmt.Errorf("%w: session %s owns %s", ErrSessionConflict, id, rootPath)
	}

	now := timeNow()
	e := &entry{Session: Session{
		ID:          uuid.NewString(),
		CallerID:    callerID,
		RootPath:    rootPath,
		StartedAt:   now,
		LastTouched: now,
	}}
	r.sessions[e.ID] = e
	r.owners[key] = e.ID
	return e.Session, nil
}

// Get returns the session by id, expiring it first if it has idled out.
func (r *Registry) Get(id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.getLocked(id)
	if err != nil {
		return Session{}, err
	}
	return e.Session, nil
}

// End closes the session and releases its repository lease.
func (r *Registry) End(id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.getLocked(id)
	if err != nil {
		return Session{}, err
	}
	r.removeLocked(e)
	return e.Session, nil
}

// BeginOperation marks the session busy for the duration of one tool
// call. Callers must pair it with EndOperation. A second operation on
// the same session fails with ErrSessionBusy instead of queueing.
func (r *Registry) BeginOperation(id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.getLocked(id)
	if err != nil {
		return Session{}, err
	}
	if e.busy {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionBusy, id)
	}
	e.busy = true
	e.LastTouched = timeNow()
	return e.Session, nil
}

// EndOperation clears the busy flag. Ending an operation on a session
// that no longer exists is a no-op.
func (r *Registry) EndOperation(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[id]; ok {
		e.busy = false
		e.LastTouched = timeNow()
	}
}

// SetActiveBranch records the branch the session writes to.
func (r *Registry) SetActiveBranch(id, branch string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.getLocked(id)
	if err != nil {
		return Session{}, err
	}
	e.ActiveBranch = branch
	e.LastTouched = timeNow()
	return e.Session, nil
}

// SetTargetFile records the document path the session works on.
func (r *Registry) SetTargetFile(id, path string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.getLocked(id)
	if err != nil {
		return Session{}, err
	}
	e.TargetFile = path
	e.LastTouched = timeNow()
	return e.Session, nil
}

// getLocked resolves an id, applying lazy expiry. Busy entries never
// expire: an in-flight operation keeps its session alive.
func (r *Registry) getLocked(id string) (*entry, error) {
	e, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if !e.busy {
		if idleFor := timeNow().Sub(e.LastTouched); idleFor > r.idle {
			r.removeLocked(e)
			return nil, fmt.Errorf("%w: %s (idle for %s)", ErrSessionNotFound, id, idleFor.Round(time.Second))
		}
	}
	return e, nil
}

func (r *Registry) purgeExpiredLocked() {
	now := timeNow()
	for _, e := range r.sessions {
		if e.busy {
			continue
		}
		if now.Sub(e.LastTouched) > r.idle {
			r.removeLocked(e)
		}
	}
}

func (r *Registry) removeLocked(e *entry) {
	delete(r.sessions, e.ID)
	delete(r.owners, ownerKey(e.CallerID, e.RootPath))
}

func ownerKey(callerID, rootPath string) string {
	return callerID + "\x00" + rootPath
}
