package collection

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"postern/internal/auth"
	"postern/pkg/logging"
)

// Store holds one loaded collection and answers auth inheritance
// queries for it. It satisfies the auth service's ConfigSource.
type Store struct {
	mu         sync.RWMutex
	collection Collection
	path       string
}

// NewStore creates a store around an empty unnamed collection.
func NewStore() *Store {
	return &Store{
		collection: Collection{ID: uuid.NewString(), Name: "untitled"},
	}
}

// LoadFile replaces the store contents with the collection from the
// YAML file at path. A missing file leaves the store on its empty
// collection, remembering the path for a later Save.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Info("Collection", "No collection file at %s, starting empty", path)
			s.mu.Lock()
			s.path = path
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read collection from %s: %w", path, err)
	}

	var col Collection
	if err := yaml.Unmarshal(data, &col); err != nil {
		return fmt.Errorf("failed to parse collection from %s: %w", path, err)
	}
	if err := validate(&col); err != nil {
		return fmt.Errorf("invalid collection in %s: %w", path, err)
	}

	s.mu.Lock()
	s.collection = col
	s.path = path
	s.mu.Unlock()

	logging.Info("Collection", "Loaded collection %q (%d requests, %d folders) from %s",
		col.Name, len(col.Requests), len(col.Folders), path)
	return nil
}

// Save writes the collection back to the file it was loaded from, or to
// the given path if it was never loaded.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path == "" {
		path = s.path
	}
	if path == "" {
		return fmt.Errorf("no path to save collection to")
	}

	data, err := yaml.Marshal(s.collection)
	if err != nil {
		return fmt.Errorf("failed to serialize collection: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create collection directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write collection to %s: %w", path, err)
	}

	s.path = path
	return nil
}

// Collection returns a shallow snapshot of the collection.
func (s *Store) Collection() Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection
}

// AddRequest appends a request, assigning an ID if it has none, and
// returns the ID.
func (s *Store) AddRequest(req Request) (string, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if err := req.Auth.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.FolderID != "" && s.folderLocked(req.FolderID) == nil {
		return "", fmt.Errorf("folder %q does not exist", req.FolderID)
	}
	s.collection.Requests = append(s.collection.Requests, req)
	return req.ID, nil
}

// AddFolder appends a folder, assigning an ID if it has none, and
// returns the ID.
func (s *Store) AddFolder(folder Folder) (string, error) {
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	if err := folder.Auth.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if folder.ParentID != "" && s.folderLocked(folder.ParentID) == nil {
		return "", fmt.Errorf("parent folder %q does not exist", folder.ParentID)
	}
	s.collection.Folders = append(s.collection.Folders, folder)
	return folder.ID, nil
}

// Request returns the request with the given ID or name.
func (s *Store) Request(idOrName string) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.collection.Requests {
		if s.collection.Requests[i].ID == idOrName || s.collection.Requests[i].Name == idOrName {
			req := s.collection.Requests[i]
			return &req, nil
		}
	}
	return nil, fmt.Errorf("request %q not found", idOrName)
}

// Requests returns a copy of all requests.
func (s *Store) Requests() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Request, len(s.collection.Requests))
	copy(out, s.collection.Requests)
	return out
}

// SetRequestAuth replaces the auth config on a request. A nil config
// makes the request inherit again.
func (s *Store) SetRequestAuth(requestID string, cfg *auth.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.collection.Requests {
		if s.collection.Requests[i].ID == requestID {
			s.collection.Requests[i].Auth = cfg.Clone()
			return nil
		}
	}
	return fmt.Errorf("request %q not found", requestID)
}

// EffectiveAuth resolves the auth config that applies to a request:
// the request's own config if set, otherwise the nearest enclosing
// folder's, otherwise the collection's. An explicit none config stops
// the walk like any other; only an absent config inherits. The result
// is a copy.
func (s *Store) EffectiveAuth(requestID string) (*auth.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var req *Request
	for i := range s.collection.Requests {
		if s.collection.Requests[i].ID == requestID {
			req = &s.collection.Requests[i]
			break
		}
	}
	if req == nil {
		return nil, fmt.Errorf("request %q not found", requestID)
	}

	if req.Auth != nil {
		return req.Auth.Clone(), nil
	}

	seen := make(map[string]bool)
	for folderID := req.FolderID; folderID != ""; {
		if seen[folderID] {
			return nil, fmt.Errorf("folder cycle detected at %q", folderID)
		}
		seen[folderID] = true

		folder := s.folderLocked(folderID)
		if folder == nil {
			return nil, fmt.Errorf("folder %q does not exist", folderID)
		}
		if folder.Auth != nil {
			return folder.Auth.Clone(), nil
		}
		folderID = folder.ParentID
	}

	if s.collection.Auth != nil {
		return s.collection.Auth.Clone(), nil
	}
	return nil, nil
}

func (s *Store) folderLocked(id string) *Folder {
	for i := range s.collection.Folders {
		if s.collection.Folders[i].ID == id {
			return &s.collection.Folders[i]
		}
	}
	return nil
}

func validate(col *Collection) error {
	folderIDs := make(map[string]bool, len(col.Folders))
	for _, f := range col.Folders {
		if f.ID == "" {
			return fmt.Errorf("folder %q has no id", f.Name)
		}
		if folderIDs[f.ID] {
			return fmt.Errorf("duplicate folder id %q", f.ID)
		}
		folderIDs[f.ID] = true
		if err := f.Auth.Validate(); err != nil {
			return fmt.Errorf("folder %q: %w", f.Name, err)
		}
	}

	requestIDs := make(map[string]bool, len(col.Requests))
	for _, r := range col.Requests {
		if r.ID == "" {
			return fmt.Errorf("request %q has no id", r.Name)
		}
		if requestIDs[r.ID] {
			return fmt.Errorf("duplicate request id %q", r.ID)
		}
		requestIDs[r.ID] = true
		if r.FolderID != "" && !folderIDs[r.FolderID] {
			return fmt.Errorf("request %q references missing folder %q", r.Name, r.FolderID)
		}
		if err := r.Auth.Validate(); err != nil {
			return fmt.Errorf("request %q: %w", r.Name, err)
		}
	}

	return col.Auth.Validate()
}
