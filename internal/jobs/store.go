package jobs

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is used when no jobs file is configured.
const DefaultPath = "jobs.toml"

// Store provides read access to job definitions.
type Store interface {
	Load() error
	Get(name string) (Job, error)
	All() map[string]Job
	Names() []string
}

// file is the on-disk layout of a jobs file.
type file struct {
	Version int            `toml:"version"`
	Jobs    map[string]Job `toml:"jobs"`
}

// tomlStore implements Store using TOML file storage.
type tomlStore struct {
	path string
	jobs map[string]Job
}

// NewTOML creates a store backed by the TOML file at path.
func NewTOML(path string) Store {
	if path == "" {
		path = DefaultPath
	}
	return &tomlStore{
		path: path,
		jobs: make(map[string]Job),
	}
}

// Load reads and validates the jobs file. A missing file yields an empty
// store.
func (s *tomlStore) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.jobs = make(map[string]Job)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read jobs file: %w", err)
	}

	var f file
	if unmarshalErr := toml.Unmarshal(data, &f); unmarshalErr != nil {
		return fmt.Errorf("failed to parse jobs file %s: %w", s.path, unmarshalErr)
	}

	jobs := make(map[string]Job, len(f.Jobs))
	for name, job := range f.Jobs {
		job.Name = name
		if validateErr := job.Validate(); validateErr != nil {
			return fmt.Errorf("%s: %w", s.path, validateErr)
		}
		jobs[name] = job
	}
	s.jobs = jobs
	return nil
}

// Get returns the job called name.
func (s *tomlStore) Get(name string) (Job, error) {
	job, ok := s.jobs[name]
	if !ok {
		return Job{}, fmt.Errorf("%w: %q in %s", ErrNotFound, name, s.path)
	}
	return job, nil
}

// All returns a copy of every job keyed by name.
func (s *tomlStore) All() map[string]Job {
	return maps.Clone(s.jobs)
}

// Names returns the job names in sorted order.
func (s *tomlStore) Names() []string {
	return slices.Sorted(maps.Keys(s.jobs))
}

// LoadFile loads every job in path. It has the shape config.Watcher
// expects of a loader.
func LoadFile(path string) (map[string]Job, error) {
	s := NewTOML(path)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s.All(), nil
}
