package runstore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInsertAndGet(t *testing.T) {
	t.Parallel()

	store, err := New()
	require.NoError(t, err)

	task := Task{ID: "simulate.3", Kind: "simulate", Framework: "native", Partition: 3, State: "pending"}
	require.NoError(t, store.Insert(task))

	got, err := store.Get("simulate.3")
	require.NoError(t, err)
	require.Equal(t, task, got)

	_, err = store.Get("absent")
	require.Error(t, err)
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	store, err := New()
	require.NoError(t, err)

	require.NoError(t, store.Insert(Task{ID: "pre", Kind: "pre", State: "pending"}))
	err = store.Insert(Task{ID: "pre", Kind: "pre", State: "pending"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "already registered")
}

func TestSetState(t *testing.T) {
	t.Parallel()

	store, err := New()
	require.NoError(t, err)

	require.NoError(t, store.Insert(Task{ID: "generate.0", Kind: "generate", State: "pending"}))
	require.NoError(t, store.SetState("generate.0", "failed", 42*time.Millisecond, errors.New("boom")))

	got, err := store.Get("generate.0")
	require.NoError(t, err)
	require.Equal(t, "failed", got.State)
	require.Equal(t, 42*time.Millisecond, got.Duration)
	require.Equal(t, "boom", got.Error)

	require.Error(t, store.SetState("absent", "done", 0, nil))
}

func TestListByState(t *testing.T) {
	t.Parallel()

	store, err := New()
	require.NoError(t, err)

	for _, task := range []Task{
		{ID: "b", Kind: "simulate", Framework: "native", State: "done"},
		{ID: "a", Kind: "simulate", Framework: "baseline", State: "done"},
		{ID: "c", Kind: "combine", State: "pending"},
	} {
		require.NoError(t, store.Insert(task))
	}

	done, err := store.ListByState("done")
	require.NoError(t, err)
	require.Len(t, done, 2)
	require.Equal(t, "a", done[0].ID)
	require.Equal(t, "b", done[1].ID)

	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})
}
