package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hakim/vulntriage/internal/jsonutil"
	"go.etcd.io/bbolt"
)

// ErrNotFound is returned by Update for an unknown session id.
var ErrNotFound = errors.New("session not found")

// Create starts a new empty session.
func (s *Store) Create() (*Session, error) {
	now := s.now().UTC()
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
		List:      ListState{Page: 1},
	}
	if err := s.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Save persists a session record.
func (s *Store) Save(sess *Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return s.put(tx, sess)
	})
}

// Get retrieves a session by ID. Returns nil, nil when it does not exist.
func (s *Store) Get(id string) (*Session, error) {
	var sess *Session

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketSessions)).Get([]byte(id))
		if data == nil {
			return nil // Not found
		}

		sess = &Session{}
		return jsonutil.Unmarshal(data, sess)
	})

	return sess, err
}

// Update applies fn to the session inside a single write transaction, so
// concurrent requests for the same session never lose each other's writes.
// If fn returns an error nothing is written.
func (s *Store) Update(id string, fn func(*Session) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		sess, err := get(tx, id)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		return s.put(tx, sess)
	})
}

// BeginLoad starts loading reportID for the session and returns the load's
// generation. Switching to another report resets the detail state.
func (s *Store) BeginLoad(id string, reportID int) (uint64, error) {
	var gen uint64
	err := s.Update(id, func(sess *Session) error {
		if sess.Detail.ReportID != reportID {
			sess.Detail = DetailState{ReportID: reportID, Generation: sess.Detail.Generation}
		}
		sess.Detail.Generation++
		gen = sess.Detail.Generation
		return nil
	})
	return gen, err
}

// CommitLoad applies fn only when gen is still the newest load of the
// session. It reports whether fn ran; a stale load is discarded.
func (s *Store) CommitLoad(id string, gen uint64, fn func(*Session)) (bool, error) {
	applied := false
	err := s.Update(id, func(sess *Session) error {
		if sess.Detail.Generation != gen {
			return nil
		}
		fn(sess)
		applied = true
		return nil
	})
	return applied, err
}

// Purge deletes sessions not updated within olderThan and returns how many
// were removed.
func (s *Store) Purge(olderThan time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-olderThan)
	removed := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions))

		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var sess Session
			if err := jsonutil.Unmarshal(v, &sess); err != nil {
				// Unreadable records are dropped too.
				stale = append(stale, append([]byte(nil), k...))
				return nil
			}
			if sess.UpdatedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})

	return removed, err
}

func get(tx *bbolt.Tx, id string) (*Session, error) {
	data := tx.Bucket([]byte(bucketSessions)).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	sess := &Session{}
	if err := jsonutil.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return sess, nil
}

func (s *Store) put(tx *bbolt.Tx, sess *Session) error {
	sess.UpdatedAt = s.now().UTC()
	data, err := jsonutil.Marshal(sess)
	if err != nil {
		return err
	}
	return tx.Bucket([]byte(bucketSessions)).Put([]byte(sess.ID), data)
}
