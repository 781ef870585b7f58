package live

import "net/http"

// TestStore a test session store.
type TestStore struct {
	s       Session
	cleared int
}

// NewTestStore return a new test store.
func NewTestStore(ID string) *TestStore {
	return &TestStore{
		s: Session{ID: ID},
	}
}

// Get a session.
func (t *TestStore) Get(r *http.Request) (Session, error) {
	return t.s, nil
}

// Save a session.
func (t *TestStore) Save(w http.ResponseWriter, r *http.Request, session Session) error {
	t.s = session
	return nil
}

// Clear a session.
func (t *TestStore) Clear(w http.ResponseWriter, r *http.Request) error {
	t.cleared++
	return nil
}
