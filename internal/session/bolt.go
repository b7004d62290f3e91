// Package session persists per-browser view state (list paging, tree
// expansion, selection, notices, modals) in bbolt so that no view state is
// held in process memory between requests.
package session

import (
	"time"

	"go.etcd.io/bbolt"
)

const bucketSessions = "sessions"

// Store wraps a bbolt database for session persistence
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewStore opens a bbolt database at the given path and initializes required buckets
func NewStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSessions))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the bbolt database
func (s *Store) Close() error {
	return s.db.Close()
}
