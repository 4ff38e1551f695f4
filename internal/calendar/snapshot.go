package calendar

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// storeDocument is the persisted shape of a Store.
type storeDocument struct {
	Name     string     `json:"name"`
	Events   []*Event   `json:"events"`
	Triggers []*Trigger `json:"triggers"`
}

// LoadStore restores the named calendar from dir. A missing snapshot file
// yields a fresh empty store, not an error.
func LoadStore(dir, name string) (*Store, error) {
	data, err := os.ReadFile(filepath.Join(dir, name+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewStore(name), nil
		}
		return nil, err
	}

	var doc storeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	s := NewStore(name)
	s.events = doc.Events
	s.triggers = doc.Triggers
	return s, nil
}

// SaveStore persists the store under dir as an indented JSON document,
// written atomically via a temp file + rename.
func SaveStore(dir string, s *Store) error {
	s.mu.Lock()
	doc := storeDocument{
		Name:     s.name,
		Events:   s.events,
		Triggers: s.triggers,
	}
	data, err := json.MarshalIndent(&doc, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".cal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, filepath.Join(dir, s.name+".json"))
}

// Set is the collection of configured calendars, each with its own store
// and snapshot file under one directory.
type Set struct {
	dir    string
	stores map[string]*Store
	order  []string
}

// LoadSet restores every named calendar from dir.
func LoadSet(dir string, names []string) (*Set, error) {
	set := &Set{dir: dir, stores: make(map[string]*Store, len(names))}
	for _, name := range names {
		s, err := LoadStore(dir, name)
		if err != nil {
			return nil, err
		}
		set.stores[name] = s
		set.order = append(set.order, name)
	}
	return set, nil
}

// Get returns the store for the named calendar, or nil if it is not
// configured.
func (set *Set) Get(name string) *Store {
	return set.stores[name]
}

// All returns the stores in configuration order.
func (set *Set) All() []*Store {
	out := make([]*Store, 0, len(set.order))
	for _, name := range set.order {
		out = append(out, set.stores[name])
	}
	return out
}

// Save persists the named calendar.
func (set *Set) Save(name string) error {
	s := set.stores[name]
	if s == nil {
		return errors.New("calendar: unknown calendar " + name)
	}
	return SaveStore(set.dir, s)
}
