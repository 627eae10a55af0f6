package bundle

import (
	"errors"
	"sync"

	"e2ee_keyserver/internal/model"
)

// ErrMaxPreKeyBundles is returned when an append would push a device's list
// over the configured bound.
var ErrMaxPreKeyBundles = errors.New("cannot store more pre-key bundles than the per-device limit")

type (
	// Store owns the mapping from device key to pending pre-key bundles.
	// Bundles are opaque; the store only guarantees the capacity bound and
	// that no bundle is ever handed out twice.
	Store struct {
		mu   sync.Mutex
		max  int
		pkbs map[model.DeviceKey][]model.PreKeyBundle
	}
)

func NewStore(maxPerDevice int) *Store {
	return &Store{
		max:  maxPerDevice,
		pkbs: make(map[model.DeviceKey][]model.PreKeyBundle),
	}
}

// Store appends bundles to the list for key. Either all bundles are added or,
// when the capacity bound would be exceeded, none are.
func (s *Store) Store(key model.DeviceKey, bundles []model.PreKeyBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasCapacity(key, len(bundles)) {
		return ErrMaxPreKeyBundles
	}

	s.pkbs[key] = append(s.pkbs[key], bundles...)
	return nil
}

// Pop removes and returns the most recently stored bundle for key. The second
// return is false when the list is absent or empty. Exclusivity holds under
// concurrent pops: two callers never receive the same bundle.
func (s *Store) Pop(key model.DeviceKey) (model.PreKeyBundle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pkbs := s.pkbs[key]
	if len(pkbs) == 0 {
		return nil, false
	}

	pkb := pkbs[len(pkbs)-1]
	s.pkbs[key] = pkbs[:len(pkbs)-1]
	return pkb, true
}

// Count reports how many bundles are pending for key, 0 when absent.
func (s *Store) Count(key model.DeviceKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pkbs[key])
}

// HasCapacity reports whether n more bundles fit under the per-device bound.
// This is the same check Store applies before appending.
func (s *Store) HasCapacity(key model.DeviceKey, n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasCapacity(key, n)
}

func (s *Store) hasCapacity(key model.DeviceKey, n int) bool {
	return len(s.pkbs[key])+n <= s.max
}
