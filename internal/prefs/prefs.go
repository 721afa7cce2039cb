// Package prefs persists per-client reading preferences: which verse tab is
// selected and which commentators are shown.
package prefs

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
)

// Tab is the verse view shown to a client.
type Tab string

const (
	TabTranslation Tab = "translation"
	TabOriginal    Tab = "original"
	TabCommentary  Tab = "commentary"
)

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool {
	switch t {
	case TabTranslation, TabOriginal, TabCommentary:
		return true
	}
	return false
}

// ViewState is what a client last chose to see.
type ViewState struct {
	SelectedTab  Tab       `json:"selectedTab"`
	Commentators []string  `json:"commentators"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// DefaultViewState shows the original text with every commentator.
func DefaultViewState() ViewState {
	return ViewState{SelectedTab: TabOriginal, Commentators: []string{}}
}

// Validate checks the tab value.
func (v ViewState) Validate() error {
	if !v.SelectedTab.Valid() {
		return errors.NewValidation("selectedTab", "must be one of translation, original, commentary")
	}
	return nil
}

// Store loads and saves view state by client id. Load of an unknown client
// returns DefaultViewState and no error.
type Store interface {
	Load(clientID string) (ViewState, error)
	Save(clientID string, state ViewState) error
}

// NewClientID returns a fresh client identifier.
func NewClientID() string {
	return uuid.NewString()
}

// ValidClientID reports whether id has the shape NewClientID produces.
func ValidClientID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

func normalize(state ViewState) ViewState {
	if state.Commentators == nil {
		state.Commentators = []string{}
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}
	return state
}

// MemoryStore keeps state in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]ViewState
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]ViewState)}
}

// Load implements Store.
func (s *MemoryStore) Load(clientID string) (ViewState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.states[clientID]; ok {
		v.Commentators = append([]string{}, v.Commentators...)
		return v, nil
	}
	return DefaultViewState(), nil
}

// Save implements Store.
func (s *MemoryStore) Save(clientID string, state ViewState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	state = normalize(state)
	state.Commentators = append([]string{}, state.Commentators...)

	s.mu.Lock()
	s.states[clientID] = state
	s.mu.Unlock()
	return nil
}

// FileStore keeps every client's state in one JSON file, rewritten
// atomically on each Save.
type FileStore struct {
	path string

	mu     sync.Mutex
	states map[string]ViewState
	loaded bool
}

// NewFileStore returns a store backed by path. The file is created on the
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load implements Store.
func (s *FileStore) Load(clientID string) (ViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return ViewState{}, err
	}
	if v, ok := s.states[clientID]; ok {
		v.Commentators = append([]string{}, v.Commentators...)
		return v, nil
	}
	return DefaultViewState(), nil
}

// Save implements Store.
func (s *FileStore) Save(clientID string, state ViewState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	state = normalize(state)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	prev, had := s.states[clientID]
	s.states[clientID] = state
	if err := s.flush(); err != nil {
		if had {
			s.states[clientID] = prev
		} else {
			delete(s.states, clientID)
		}
		return err
	}
	return nil
}

// ensureLoaded must be called with s.mu held.
func (s *FileStore) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	s.states = make(map[string]ViewState)

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.loaded = true
		return nil
	}
	if err != nil {
		return errors.NewIO("read preferences", s.path, err)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &s.states); err != nil {
			return errors.WrapParse("JSON", s.path, err)
		}
	}
	s.loaded = true
	return nil
}

// flush must be called with s.mu held.
func (s *FileStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.NewIO("create preferences dir", filepath.Dir(s.path), err)
	}

	data, err := json.MarshalIndent(s.states, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return errors.NewIO("write preferences", s.path, err)
	}
	return nil
}
