package bundle

import (
	"fmt"
	"testing"

	"e2ee_keyserver/internal/model"

	"github.com/stretchr/testify/require"
)

var testKey = model.DeviceKey{Account: "alice", Device: 0}

func pkbs(values ...string) []model.PreKeyBundle {
	out := make([]model.PreKeyBundle, 0, len(values))
	for _, v := range values {
		out = append(out, model.PreKeyBundle(v))
	}
	return out
}

func TestStore_AppendsAndCounts(t *testing.T) {
	s := NewStore(50)

	require.Equal(t, 0, s.Count(testKey))

	err := s.Store(testKey, pkbs("a", "b"))
	require.NoError(t, err)
	require.Equal(t, 2, s.Count(testKey))

	err = s.Store(testKey, pkbs("c"))
	require.NoError(t, err)
	require.Equal(t, 3, s.Count(testKey))
}

func TestStore_CapacityInvariant(t *testing.T) {
	s := NewStore(3)

	require.NoError(t, s.Store(testKey, pkbs("a", "b", "c")))

	// Full list: any further append fails and leaves the list unchanged.
	err := s.Store(testKey, pkbs("d"))
	require.ErrorIs(t, err, ErrMaxPreKeyBundles)
	require.Equal(t, 3, s.Count(testKey))
}

func TestStore_OverflowingBatchIsAtomic(t *testing.T) {
	s := NewStore(3)

	require.NoError(t, s.Store(testKey, pkbs("a", "b")))

	// Two fit one by one, but not as a batch; none may land.
	err := s.Store(testKey, pkbs("c", "d"))
	require.ErrorIs(t, err, ErrMaxPreKeyBundles)
	require.Equal(t, 2, s.Count(testKey))
}

func TestStore_StoringNothingIsAllowedAtCapacity(t *testing.T) {
	s := NewStore(1)

	require.NoError(t, s.Store(testKey, pkbs("a")))
	require.NoError(t, s.Store(testKey, nil))
	require.Equal(t, 1, s.Count(testKey))
}

func TestStore_PopIsLIFO(t *testing.T) {
	s := NewStore(50)

	require.NoError(t, s.Store(testKey, pkbs("b1", "b2", "b3")))

	for _, want := range []string{"b3", "b2", "b1"} {
		pkb, ok := s.Pop(testKey)
		require.True(t, ok)
		require.Equal(t, model.PreKeyBundle(want), pkb)
	}

	_, ok := s.Pop(testKey)
	require.False(t, ok)
}

func TestStore_PopAbsentKey(t *testing.T) {
	s := NewStore(50)

	pkb, ok := s.Pop(model.DeviceKey{Account: "nobody", Device: 7})
	require.False(t, ok)
	require.Nil(t, pkb)
}

func TestStore_PopDecreasesCount(t *testing.T) {
	s := NewStore(50)

	require.NoError(t, s.Store(testKey, pkbs("a", "b")))

	_, ok := s.Pop(testKey)
	require.True(t, ok)
	require.Equal(t, 1, s.Count(testKey))

	// An emptied list behaves like an absent key and accepts new stores.
	_, ok = s.Pop(testKey)
	require.True(t, ok)
	require.Equal(t, 0, s.Count(testKey))
	require.NoError(t, s.Store(testKey, pkbs("c")))
}

func TestStore_KeysAreIndependent(t *testing.T) {
	s := NewStore(1)

	for i := 0; i < 5; i++ {
		key := model.DeviceKey{Account: "alice", Device: model.DeviceID(i)}
		require.NoError(t, s.Store(key, pkbs(fmt.Sprintf("b%d", i))))
	}

	other := model.DeviceKey{Account: "bob", Device: 0}
	require.NoError(t, s.Store(other, pkbs("x")))
	require.Equal(t, 1, s.Count(other))
	require.Equal(t, 1, s.Count(model.DeviceKey{Account: "alice", Device: 3}))
}

func TestStore_HasCapacityMatchesStore(t *testing.T) {
	s := NewStore(2)

	require.True(t, s.HasCapacity(testKey, 2))
	require.False(t, s.HasCapacity(testKey, 3))

	require.NoError(t, s.Store(testKey, pkbs("a")))
	require.True(t, s.HasCapacity(testKey, 1))
	require.False(t, s.HasCapacity(testKey, 2))
}

func TestStore_ConcurrentPopsNeverShareABundle(t *testing.T) {
	s := NewStore(50)

	stored := make([]model.PreKeyBundle, 0, 50)
	for i := 0; i < 50; i++ {
		stored = append(stored, model.PreKeyBundle(fmt.Sprintf("b%d", i)))
	}
	require.NoError(t, s.Store(testKey, stored))

	results := make(chan string, 50)
	for i := 0; i < 50; i++ {
		go func() {
			pkb, ok := s.Pop(testKey)
			if ok {
				results <- string(pkb)
			} else {
				results <- ""
			}
		}()
	}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		v := <-results
		require.NotEmpty(t, v)
		require.False(t, seen[v], "bundle %q handed out twice", v)
		seen[v] = true
	}
	require.Equal(t, 0, s.Count(testKey))
}
