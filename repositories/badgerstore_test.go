package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"rolling-paper/contract"
	"rolling-paper/domain"
	"rolling-paper/errors"
)

func newTestBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerStore(db, slog.Default())
}

func Test_BadgerStore_Append_And_List_Newest_First(t *testing.T) {
	req := require.New(t)
	store := newTestBadgerStore(t)

	req.NoError(store.Append(boardMessage("m1", 1000)))
	req.NoError(store.Append(boardMessage("m2", 3000)))
	req.NoError(store.Append(boardMessage("m3", 2000)))

	messages, err := store.ListAll()
	req.NoError(err)
	req.Len(messages, 3)
	req.Equal("m2", messages[0].ID)
	req.Equal("m3", messages[1].ID)
	req.Equal("m1", messages[2].ID)
}

func Test_BadgerStore_Append_Rejects_Duplicate_ID(t *testing.T) {
	req := require.New(t)
	store := newTestBadgerStore(t)

	req.NoError(store.Append(boardMessage("m1", 1000)))
	req.ErrorIs(store.Append(boardMessage("m1", 2000)), errors.ErrDuplicateID)
}

func Test_BadgerStore_GetByID(t *testing.T) {
	req := require.New(t)
	store := newTestBadgerStore(t)

	m := boardMessage("m1", 1000)
	m.PasswordHash = "$argon2id$..."
	req.NoError(store.Append(m))

	fetched, err := store.GetByID("m1")
	req.NoError(err)
	req.Equal(m, fetched)

	_, err = store.GetByID("ghost")
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_BadgerStore_Replace_Targets_Single_Message(t *testing.T) {
	req := require.New(t)
	store := newTestBadgerStore(t)

	req.NoError(store.Append(boardMessage("m1", 1000)))
	req.NoError(store.Append(boardMessage("m2", 2000)))

	mutated, err := store.Replace("m1", func(m *domain.Message) error {
		m.Content = "edited"
		m.Likes++
		return nil
	})
	req.NoError(err)
	req.Equal("edited", mutated.Content)
	req.Equal(1, mutated.Likes)
	req.Equal(int64(1000), mutated.Timestamp)

	untouched, err := store.GetByID("m2")
	req.NoError(err)
	req.Equal("have a great year", untouched.Content)
}

func Test_BadgerStore_Remove(t *testing.T) {
	req := require.New(t)
	store := newTestBadgerStore(t)

	req.NoError(store.Append(boardMessage("m1", 1000)))
	req.NoError(store.Remove("m1"))
	req.ErrorIs(store.Remove("m1"), errors.ErrNotFound)

	messages, err := store.ListAll()
	req.NoError(err)
	req.Empty(messages)
}

func Test_BadgerStore_GroupsPresent(t *testing.T) {
	req := require.New(t)
	store := newTestBadgerStore(t)

	first := boardMessage("m1", 1000)
	second := boardMessage("m2", 2000)
	second.Group = "FDM"
	third := boardMessage("m3", 3000)
	req.NoError(store.Append(first))
	req.NoError(store.Append(second))
	req.NoError(store.Append(third))

	groups, err := store.GroupsPresent()
	req.NoError(err)
	req.ElementsMatch([]domain.Group{"ESD", "FDM"}, groups)
}

func Test_BadgerStore_Watch_Emits_Changes(t *testing.T) {
	req := require.New(t)
	store := newTestBadgerStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan contract.Change, 16)
	go func() {
		_ = store.Watch(ctx, func(c contract.Change) { changes <- c })
	}()
	// Give the subscription a moment to attach before writing.
	time.Sleep(100 * time.Millisecond)

	req.NoError(store.Append(boardMessage("m1", 1000)))

	select {
	case change := <-changes:
		req.Equal("m1", change.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("no change received from store watch")
	}
}
