package category

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/speakleash/pkg/speakleash/filestore"
)

// ErrNoLabels is returned by a LabelStore that holds no list for a language.
var ErrNoLabels = errors.New("no cached labels")

// LabelStore persists label lists between resolver lifetimes. Stored lists
// never expire; delete the store to force a refresh.
type LabelStore interface {
	Load(lang string) ([]string, error)
	Save(lang string, labels []string) error
}

// DirStore keeps one text file per language in a directory.
type DirStore struct {
	dir string
}

// NewDirStore returns a DirStore rooted at dir. The directory is created on
// first save.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// DefaultDirStore returns a DirStore under the system temp directory.
func DefaultDirStore() *DirStore {
	return NewDirStore(filepath.Join(os.TempDir(), "speakleash"))
}

// Ensure DirStore implements LabelStore.
var _ LabelStore = (*DirStore)(nil)

func (s *DirStore) path(lang string) string {
	return filepath.Join(s.dir, lang+"_categories.txt")
}

// Load reads the cached list for lang.
func (s *DirStore) Load(lang string) ([]string, error) {
	labels, err := filestore.LoadText(s.path(lang))
	if errors.Is(err, filestore.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoLabels, lang)
	}
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoLabels, lang)
	}
	return labels, nil
}

// Save writes the list for lang.
func (s *DirStore) Save(lang string, labels []string) error {
	if err := filestore.EnsureDir(s.dir); err != nil {
		return err
	}
	return filestore.SaveText(labels, s.path(lang))
}

// BadgerStore keeps label lists in a badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens or creates a badger database at dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open label store %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

// Ensure BadgerStore implements LabelStore.
var _ LabelStore = (*BadgerStore)(nil)

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func labelKey(lang string) []byte {
	return []byte("labels:" + lang)
}

// Load reads the cached list for lang.
func (s *BadgerStore) Load(lang string) ([]string, error) {
	var labels []string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(labelKey(lang))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNoLabels, lang)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) > 0 {
				labels = strings.Split(string(val), "\n")
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoLabels, lang)
	}
	return labels, nil
}

// Save writes the list for lang.
func (s *BadgerStore) Save(lang string, labels []string) error {
	value := []byte(strings.Join(labels, "\n"))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(labelKey(lang), value)
	})
}

// Delete removes the cached list for lang.
func (s *BadgerStore) Delete(lang string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(labelKey(lang))
	})
}
