package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pingcap/errors"
	"go.etcd.io/bbolt"

	"beetest/internal/config"
	"beetest/internal/stats"
)

const (
	BucketSessions = "sessions"
)

// ErrNotFound is returned by Get for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// HistoryItem describes one finished (or interrupted) session.
type HistoryItem struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Config      config.Config `json:"config"`
	LogFile     string        `json:"log_file"`
	Interrupted bool          `json:"interrupted"`
	Summary     stats.Summary `json:"summary"`
}

type Store struct {
	db       *bbolt.DB
	filePath string
}

// DefaultPath is $HOME/.beetest/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Trace(err)
	}
	return filepath.Join(home, ".beetest", "history.db"), nil
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Annotate(err, "create history directory")
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Annotatef(err, "open history %s", path)
	}

	// Initialize Buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketSessions))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Trace(err)
	}

	return &Store{
		db:       db,
		filePath: path,
	}, nil
}

func (s *Store) Path() string { return s.filePath }

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return errors.Trace(err)
}

// Save stores item under a key that sorts by start time.
func (s *Store) Save(item HistoryItem) error {
	if item.ID == "" {
		return errors.New("history item has no id")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketSessions))

		data, err := json.Marshal(item)
		if err != nil {
			return errors.Trace(err)
		}
		return b.Put(itemKey(item), data)
	})
}

// List returns sessions newest first. Entries that fail to decode are skipped.
func (s *Store) List() ([]HistoryItem, error) {
	var items []HistoryItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketSessions))
		c := b.Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err == nil {
				items = append(items, item)
			}
		}
		return nil
	})
	return items, errors.Trace(err)
}

// Get looks a session up by ID or by a unique ID prefix.
func (s *Store) Get(id string) (*HistoryItem, error) {
	items, err := s.List()
	if err != nil {
		return nil, err
	}
	var found *HistoryItem
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
		if len(id) >= 4 && len(items[i].ID) > len(id) && items[i].ID[:len(id)] == id {
			if found != nil {
				return nil, errors.Errorf("session prefix %q is ambiguous", id)
			}
			found = &items[i]
		}
	}
	if found == nil {
		return nil, errors.Annotate(ErrNotFound, id)
	}
	return found, nil
}

func itemKey(item HistoryItem) []byte {
	return []byte(item.StartedAt.UTC().Format("20060102T150405.000000000Z") + "/" + item.ID)
}
