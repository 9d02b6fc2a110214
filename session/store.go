package session

import "sync"

// Store owns the active session of one interactive context and creates it
// lazily. Safe for concurrent use.
type Store struct {
	model Model

	mu      sync.Mutex
	current *Session
}

// NewStore creates an empty Store whose sessions talk to model.
func NewStore(model Model) *Store {
	return &Store{model: model}
}

// GetOrCreate returns the active session, creating it from cfg when none
// exists.
//
// An existing session is returned unchanged and cfg is ignored: generation
// settings are fixed at creation and only take effect after Reset. Callers
// that let users change settings should compare Session.Config and warn.
func (st *Store) GetOrCreate(cfg Config) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.current != nil {
		return st.current, nil
	}
	s, err := New(st.model, cfg)
	if err != nil {
		return nil, err
	}
	st.current = s
	return s, nil
}

// Resume replaces the active session with one rebuilt from history.
func (st *Store) Resume(cfg Config, history []Message) (*Session, error) {
	s, err := Resume(st.model, cfg, history)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	st.current = s
	st.mu.Unlock()
	return s, nil
}

// Current returns the active session, if any.
func (st *Store) Current() (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.current, st.current != nil
}

// Reset drops the active session. The next GetOrCreate starts over.
func (st *Store) Reset() {
	st.mu.Lock()
	st.current = nil
	st.mu.Unlock()
}
