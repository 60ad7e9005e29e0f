package tts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// DocumentSession is the persisted resume state for one document, keyed by
// its absolute path. Field names match the original on-disk record.
type DocumentSession struct {
	Page  int    `json:"page"`
	Voice string `json:"tts_voice"`
	Rate  string `json:"tts_rate"`
}

// SessionStore persists per-document resume state in a single JSON record.
// State is best-effort convenience: load failures yield an empty mapping and
// are never surfaced.
type SessionStore struct {
	path string

	mu       sync.Mutex
	sessions map[string]DocumentSession
}

// NewSessionStore opens the store at path, absorbing a missing or corrupt
// record into an empty mapping.
func NewSessionStore(path string) *SessionStore {
	s := &SessionStore{
		path:     path,
		sessions: make(map[string]DocumentSession),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var sessions map[string]DocumentSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return s
	}
	s.sessions = sessions
	return s
}

// Get returns the session for a document, if one was saved.
func (s *SessionStore) Get(doc string) (DocumentSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[doc]
	return sess, ok
}

// Put records the session for a document and rewrites the whole record.
func (s *SessionStore) Put(doc string, sess DocumentSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[doc] = sess
	return s.save()
}

// All returns a copy of the full mapping.
func (s *SessionStore) All() map[string]DocumentSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]DocumentSession, len(s.sessions))
	for k, v := range s.sessions {
		out[k] = v
	}
	return out
}

// save overwrites the record atomically: write to a temp file, then rename.
// Callers must hold s.mu.
func (s *SessionStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.sessions, "", "    ")
	if err != nil {
		return err
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		os.Remove(tempPath)
		return err
	}
	return os.Rename(tempPath, s.path)
}
