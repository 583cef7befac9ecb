package snapshot_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/randalmurphal/formstate/pkg/formstate/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) snapshot.Store

// storeContractTest runs the Store contract against an implementation.
func storeContractTest(t *testing.T, factory storeFactory) {
	t.Run("save and load", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		data := []byte(`{"version":1}`)
		require.NoError(t, store.Save("signup", "step-1", data))

		loaded, err := store.Load("signup", "step-1")
		require.NoError(t, err)
		assert.Equal(t, data, loaded)
	})

	t.Run("load missing", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Load("signup", "nope")
		assert.ErrorIs(t, err, snapshot.ErrNotFound)
	})

	t.Run("save overwrites", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save("signup", "draft", []byte("first")))
		require.NoError(t, store.Save("signup", "draft", []byte("second")))

		loaded, err := store.Load("signup", "draft")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), loaded)
	})

	t.Run("list empty", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		infos, err := store.List("nothing")
		require.NoError(t, err)
		assert.Empty(t, infos)
	})

	t.Run("list ordered by sequence", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save("signup", "a", []byte("a")))
		require.NoError(t, store.Save("signup", "b", []byte("bb")))
		require.NoError(t, store.Save("signup", "c", []byte("ccc")))
		require.NoError(t, store.Save("signup", "a", []byte("aaaa")))

		infos, err := store.List("signup")
		require.NoError(t, err)
		require.Len(t, infos, 3)

		assert.Equal(t, []string{"b", "c", "a"}, []string{infos[0].Label, infos[1].Label, infos[2].Label})
		assert.Equal(t, 4, infos[2].Sequence, "resaving moves a draft to the end")
		assert.Equal(t, int64(4), infos[2].Size)
		assert.Equal(t, "signup", infos[0].FormID)
		assert.False(t, infos[0].Timestamp.IsZero())
	})

	t.Run("delete", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save("signup", "a", []byte("a")))
		require.NoError(t, store.Delete("signup", "a"))
		require.NoError(t, store.Delete("signup", "a"))

		_, err := store.Load("signup", "a")
		assert.ErrorIs(t, err, snapshot.ErrNotFound)
	})

	t.Run("delete form", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save("signup", "a", []byte("a")))
		require.NoError(t, store.Save("signup", "b", []byte("b")))
		require.NoError(t, store.Save("profile", "a", []byte("other")))
		require.NoError(t, store.DeleteForm("signup"))

		infos, err := store.List("signup")
		require.NoError(t, err)
		assert.Empty(t, infos)

		loaded, err := store.Load("profile", "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("other"), loaded)
	})

	t.Run("closed store", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())

		assert.ErrorIs(t, store.Save("f", "a", nil), snapshot.ErrStoreClosed)
		_, err := store.Load("f", "a")
		assert.ErrorIs(t, err, snapshot.ErrStoreClosed)
		_, err = store.List("f")
		assert.ErrorIs(t, err, snapshot.ErrStoreClosed)
		assert.ErrorIs(t, store.Delete("f", "a"), snapshot.ErrStoreClosed)
		assert.ErrorIs(t, store.DeleteForm("f"), snapshot.ErrStoreClosed)
		assert.NoError(t, store.Close())
	})

	t.Run("concurrent", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				label := fmt.Sprintf("draft-%d", i)
				assert.NoError(t, store.Save("signup", label, []byte(label)))
				_, err := store.Load("signup", label)
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		infos, err := store.List("signup")
		require.NoError(t, err)
		assert.Len(t, infos, 20)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContractTest(t, func(t *testing.T) snapshot.Store {
		return snapshot.NewMemoryStore()
	})
}

func TestMemoryStoreCopiesData(t *testing.T) {
	store := snapshot.NewMemoryStore()
	data := []byte("abc")
	require.NoError(t, store.Save("f", "a", data))
	data[0] = 'x'

	loaded, err := store.Load("f", "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), loaded)

	loaded[1] = 'y'
	again, _ := store.Load("f", "a")
	assert.Equal(t, []byte("abc"), again)
	assert.Equal(t, 1, store.Len())
}

func TestSQLiteStore(t *testing.T) {
	storeContractTest(t, func(t *testing.T) snapshot.Store {
		store, err := snapshot.NewSQLiteStore(":memory:")
		require.NoError(t, err)
		return store
	})
}

func TestSQLiteStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")

	first, err := snapshot.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Save("signup", "step-2", []byte("persistent")))
	require.NoError(t, first.Close())

	second, err := snapshot.NewSQLiteStore(path)
	require.NoError(t, err)
	defer second.Close()

	data, err := second.Load("signup", "step-2")
	require.NoError(t, err)
	assert.Equal(t, []byte("persistent"), data)
}

func TestSQLiteStoreInvalidPath(t *testing.T) {
	_, err := snapshot.NewSQLiteStore("/nonexistent/dir/drafts.db")
	assert.Error(t, err)
}

func TestRetryStore(t *testing.T) {
	storeContractTest(t, func(t *testing.T) snapshot.Store {
		return snapshot.WithRetry(snapshot.NewMemoryStore(), snapshot.DefaultRetry)
	})
}
