package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
)

// yamlScript is one entry of the YAML library file
type yamlScript struct {
	Lines   []string  `yaml:"lines"`
	Updated time.Time `yaml:"updated,omitempty"`
}

type yamlFile struct {
	Scripts map[string]yamlScript `yaml:"scripts"`
}

// YAMLScriptStore keeps the script library in a single YAML file:
//
//	scripts:
//	  build:
//	    lines:
//	      - cd $(CURRENT_DIRECTORY)
//	      - go build ./...
type YAMLScriptStore struct {
	path    string
	mu      sync.RWMutex
	scripts map[string]yamlScript
}

// NewYAMLScriptStore loads path. A missing file is an empty library.
func NewYAMLScriptStore(path string) (*YAMLScriptStore, error) {
	s := &YAMLScriptStore{path: path, scripts: make(map[string]yamlScript)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to read script library").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("store.NewYAMLScriptStore").
			WithDetail("path", path)
	}

	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, mdwerror.Wrap(err, "failed to parse script library").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("store.NewYAMLScriptStore").
			WithDetail("path", path)
	}
	for name, sc := range f.Scripts {
		s.scripts[strings.ToLower(name)] = sc
	}
	return s, nil
}

// Script returns the lines of a script
func (s *YAMLScriptStore) Script(ctx context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scripts[strings.ToLower(name)]
	if !ok {
		return nil, notFound(name)
	}
	return append([]string(nil), sc.Lines...), nil
}

// List returns all scripts sorted by name
func (s *YAMLScriptStore) List(ctx context.Context) ([]ScriptInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ScriptInfo, 0, len(s.scripts))
	for name, sc := range s.scripts {
		infos = append(infos, ScriptInfo{Name: name, Lines: len(sc.Lines), Updated: sc.Updated})
	}
	sortInfos(infos)
	return infos, nil
}

// Save creates or replaces a script and rewrites the file
func (s *YAMLScriptStore) Save(ctx context.Context, name string, lines []string) error {
	if err := validName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.scripts[strings.ToLower(name)] = yamlScript{
		Lines:   append([]string(nil), lines...),
		Updated: time.Now().UTC().Truncate(time.Second),
	}
	return s.flush()
}

// Delete removes a script
func (s *YAMLScriptStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(name)
	if _, ok := s.scripts[key]; !ok {
		return notFound(name)
	}
	delete(s.scripts, key)
	return s.flush()
}

// Close is a no-op; every change is written immediately
func (s *YAMLScriptStore) Close() error {
	return nil
}

// flush writes the library through a temporary file. Callers hold mu.
func (s *YAMLScriptStore) flush() error {
	data, err := yaml.Marshal(yamlFile{Scripts: s.scripts})
	if err != nil {
		return mdwerror.Wrap(err, "failed to encode script library").
			WithCode(mdwerror.CodeInternal).
			WithOperation("store.flush")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return mdwerror.Wrap(err, "failed to create directory").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("store.flush")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return mdwerror.Wrap(err, "failed to write script library").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("store.flush")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return mdwerror.Wrap(err, "failed to replace script library").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("store.flush")
	}
	return nil
}
