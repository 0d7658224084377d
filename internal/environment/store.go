package environment

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"postern/pkg/logging"
)

// variablePattern matches template variables like {{ baseUrl }}, with
// or without surrounding whitespace.
var variablePattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.-]*)\s*\}\}`)

// Store holds the loaded environments and the active selection. All
// methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	envs   map[string]Environment
	order  []string
	active string
}

// NewStore creates an empty store with no active environment.
func NewStore() *Store {
	return &Store{envs: make(map[string]Environment)}
}

// LoadFile replaces the store contents with the environments from the
// YAML file at path. A missing file leaves the store empty without
// error so a fresh workspace works out of the box.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Info("Environment", "No environments file at %s, starting empty", path)
			return nil
		}
		return fmt.Errorf("failed to read environments from %s: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse environments from %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.envs = make(map[string]Environment, len(file.Environments))
	s.order = s.order[:0]
	for _, env := range file.Environments {
		if env.Name == "" {
			continue
		}
		s.envs[env.Name] = env
		s.order = append(s.order, env.Name)
	}

	if file.ActiveEnvironment != "" {
		if _, ok := s.envs[file.ActiveEnvironment]; !ok {
			return fmt.Errorf("active environment %q not defined in %s", file.ActiveEnvironment, path)
		}
		s.active = file.ActiveEnvironment
	} else if _, ok := s.envs[s.active]; !ok {
		s.active = ""
	}

	logging.Info("Environment", "Loaded %d environments from %s (active: %s)",
		len(s.envs), path, s.activeNameLocked())
	return nil
}

// SetActive switches the active environment.
func (s *Store) SetActive(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		s.active = ""
		return nil
	}
	if _, ok := s.envs[name]; !ok {
		return fmt.Errorf("environment %q is not defined", name)
	}
	s.active = name
	return nil
}

// Active returns the name of the active environment, or "".
func (s *Store) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Names returns the environment names in file order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Lookup returns the value of a variable in the active environment.
func (s *Store) Lookup(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	env, ok := s.envs[s.active]
	if !ok {
		return "", false
	}
	value, ok := env.Variables[name]
	return value, ok
}

// Resolve substitutes every {{variable}} in the input with its value
// from the active environment. Unknown variables are an error; a value
// must never be used half-resolved.
func (s *Store) Resolve(input string) (string, error) {
	if !strings.Contains(input, "{{") {
		return input, nil
	}

	s.mu.RLock()
	env, hasActive := s.envs[s.active]
	s.mu.RUnlock()

	var missing []string
	out := variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		name := variablePattern.FindStringSubmatch(match)[1]
		if hasActive {
			if value, ok := env.Variables[name]; ok {
				return value
			}
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("unresolved variables: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func (s *Store) activeNameLocked() string {
	if s.active == "" {
		return "none"
	}
	return s.active
}
