package interview

import (
	"sync"

	"github.com/garnizeh/mockinterview/pkg/models"
)

// introAnswer is one answered intro question.
type introAnswer struct {
	Question string
	Answer   string
}

// sessionState is the transient, process-local part of a session. mu is held
// for the whole of an operation so calls for one session run one at a time.
type sessionState struct {
	mu sync.Mutex

	phase   Phase
	step    int
	answers []introAnswer
	profile models.IntroProfile
	role    models.RoleTemplate
	// continuation context returned by the last intro completion
	introContext []int
}

// advance moves to p unless that would go backwards.
func (st *sessionState) advance(p Phase) {
	if st.phase.Before(p) {
		st.phase = p
	}
}

// Snapshot is a read-only view of a session's progress.
type Snapshot struct {
	Phase     Phase
	IntroStep int
}

func (st *sessionState) snapshot() Snapshot {
	return Snapshot{Phase: st.phase, IntroStep: st.step}
}

type registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*sessionState)}
}

func (r *registry) get(id string) (*sessionState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.sessions[id]
	return st, ok
}

// putIfAbsent stores st unless another state is already registered, in which
// case the registered one is returned.
func (r *registry) putIfAbsent(id string, st *sessionState) *sessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[id]; ok {
		return cur
	}
	r.sessions[id] = st
	return st
}
