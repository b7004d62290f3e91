package session

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hakim/vulntriage/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, 1, sess.List.Page)

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.ID, got.ID)

	missing, err := store.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdatePersistsState(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Create()
	require.NoError(t, err)

	err = store.Update(sess.ID, func(s *Session) error {
		s.List = ListState{Page: 3, Search: "shop"}
		s.Notices.Push(notify.KindSuccess, "deleted", time.Now())
		s.Modals.Open(notify.ModalStatus)
		s.Detail.Tree.Collapsed = map[string]bool{"vuln-1": true}
		return nil
	})
	require.NoError(t, err)

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, ListState{Page: 3, Search: "shop"}, got.List)
	require.Len(t, got.Notices, 1)
	assert.Equal(t, "deleted", got.Notices[0].Message)
	assert.True(t, got.Modals.IsOpen(notify.ModalStatus))
	assert.False(t, got.Detail.Tree.Expanded("vuln-1"))
}

func TestUpdateUnknownSession(t *testing.T) {
	store := newTestStore(t)
	err := store.Update("missing", func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Create()
	require.NoError(t, err)

	first, err := store.BeginLoad(sess.ID, 7)
	require.NoError(t, err)
	second, err := store.BeginLoad(sess.ID, 7)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	applied, err := store.CommitLoad(sess.ID, second, func(s *Session) { s.Detail.Rows = []int{1, 2} })
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.CommitLoad(sess.ID, first, func(s *Session) { s.Detail.Rows = []int{99} })
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got.Detail.Rows)
}

func TestBeginLoadResetsOnReportSwitch(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Create()
	require.NoError(t, err)

	gen, err := store.BeginLoad(sess.ID, 1)
	require.NoError(t, err)
	_, err = store.CommitLoad(sess.ID, gen, func(s *Session) {
		s.Detail.Selected = []int{5}
		s.Detail.Tree.Active = 5
	})
	require.NoError(t, err)

	_, err = store.BeginLoad(sess.ID, 1)
	require.NoError(t, err)
	got, _ := store.Get(sess.ID)
	assert.Equal(t, []int{5}, got.Detail.Selected)

	_, err = store.BeginLoad(sess.ID, 2)
	require.NoError(t, err)
	got, _ = store.Get(sess.ID)
	assert.Equal(t, 2, got.Detail.ReportID)
	assert.Empty(t, got.Detail.Selected)
	assert.Zero(t, got.Detail.Tree.Active)
}

func TestConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Create()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.BeginLoad(sess.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), got.Detail.Generation)
}

func TestPurge(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return base }
	old, err := store.Create()
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(24 * time.Hour) }
	fresh, err := store.Create()
	require.NoError(t, err)

	removed, err := store.Purge(12 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	gone, _ := store.Get(old.ID)
	assert.Nil(t, gone)
	kept, _ := store.Get(fresh.ID)
	assert.NotNil(t, kept)
}

func TestDetailStateSelectionAndReset(t *testing.T) {
	d := DetailState{ReportID: 4, Generation: 9, Rows: []int{1, 2, 3}, Selected: []int{2, 7}, StatusModal: 2}
	assert.Equal(t, []int{2}, d.Selection().IDs())

	d.Reset()
	assert.Equal(t, DetailState{ReportID: 4, Generation: 9}, d)
}
