// Package fleetconfig reads and writes the fleet adapter YAML documents kept
// in the config directory, and reads the traffic-editor building file.
package fleetconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultFilename is used when a request names no file.
const DefaultFilename = "config.yaml"

var (
	ErrNotLocal       = errors.New("filename must be local to the config directory")
	ErrExists         = errors.New("config file already exists")
	ErrRobotExists    = errors.New("robot already exists")
	ErrRobotNotFound  = errors.New("robot not found")
	ErrNotFleetConfig = errors.New("document has no robots mapping")
)

// Document is a parsed YAML document. Fleet configs are kept as generic maps
// so keys the console does not know about survive a round trip.
type Document = map[string]any

// Store serializes all writes to the config directory through one lock.
type Store struct {
	mu           sync.Mutex
	dir          string
	buildingPath string
}

func NewStore(configDir, buildingDir, buildingFilename string) *Store {
	return &Store{
		dir:          configDir,
		buildingPath: filepath.Join(buildingDir, buildingFilename),
	}
}

// Dir returns the config directory.
func (s *Store) Dir() string { return s.dir }

// Path resolves filename inside the config directory.
func (s *Store) Path(filename string) (string, error) {
	if filename == "" {
		filename = DefaultFilename
	}
	if !filepath.IsLocal(filename) {
		return "", fmt.Errorf("%q: %w", filename, ErrNotLocal)
	}
	return filepath.Join(s.dir, filename), nil
}

// Read parses a config file.
func (s *Store) Read(filename string) (Document, error) {
	path, err := s.Path(filename)
	if err != nil {
		return nil, err
	}
	return readYAML(path)
}

// Write replaces a config file with the serialized document.
func (s *Store) Write(filename string, doc Document) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(path, data)
}

// Create writes a new config file. It fails with ErrExists rather than
// overwrite a file that is already there.
func (s *Store) Create(filename string, doc Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	return s.create(filename, data)
}

// CreateFromTemplate writes a new fleet config populated from params.
func (s *Store) CreateFromTemplate(filename string, p TemplateParams) error {
	tmpl, err := NewFleetTemplate(p)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	return s.create(filename, data)
}

func (s *Store) create(filename string, data []byte) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", filename, ErrExists)
	}
	return writeFileAtomic(path, data)
}

// AddRobot inserts a robot entry under the document's robots mapping.
func (s *Store) AddRobot(filename, name string, entry RobotEntry) error {
	if name == "" {
		return fmt.Errorf("robot name is required")
	}
	return s.modify(filename, func(doc Document) error {
		robots, err := robotsOf(doc)
		if err != nil {
			return err
		}
		if _, ok := robots[name]; ok {
			return fmt.Errorf("%s: %w", name, ErrRobotExists)
		}
		node, err := toGeneric(entry)
		if err != nil {
			return err
		}
		robots[name] = node
		return nil
	})
}

// RemoveRobot deletes a robot entry.
func (s *Store) RemoveRobot(filename, name string) error {
	return s.modify(filename, func(doc Document) error {
		robots, err := robotsOf(doc)
		if err != nil {
			return err
		}
		if _, ok := robots[name]; !ok {
			return fmt.Errorf("%s: %w", name, ErrRobotNotFound)
		}
		delete(robots, name)
		return nil
	})
}

// modify runs a read-modify-write cycle under the write lock.
func (s *Store) modify(filename string, fn func(Document) error) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := readYAML(path)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	return writeFileAtomic(path, data)
}

// ReadBuilding parses the traffic-editor building file.
func (s *Store) ReadBuilding() (Document, error) {
	return readYAML(s.buildingPath)
}

func robotsOf(doc Document) (map[string]any, error) {
	raw, ok := doc["robots"]
	if !ok || raw == nil {
		robots := map[string]any{}
		doc["robots"] = robots
		return robots, nil
	}
	robots, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrNotFleetConfig
	}
	return robots, nil
}

// toGeneric converts a typed value into the map form used by documents.
func toGeneric(v any) (any, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func readYAML(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := Document{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it over the destination so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// IsConfigFile reports whether name looks like a fleet config file.
func IsConfigFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := filepath.Ext(base)
	return ext == ".yaml" || ext == ".yml"
}
