package collection

import "sync"

// SyncMap is a typed map guarded by a RWMutex.
type SyncMap[K comparable, V any] struct {
	mux  sync.RWMutex
	data map[K]V
}

// Put stores value under key.
func (m *SyncMap[K, V]) Put(key K, value V) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.data[key] = value
}

// Delete removes key.
func (m *SyncMap[K, V]) Delete(key K) {
	m.mux.Lock()
	defer m.mux.Unlock()
	delete(m.data, key)
}

// Values returns a snapshot of the stored values.
func (m *SyncMap[K, V]) Values() []V {
	m.mux.RLock()
	defer m.mux.RUnlock()
	ret := make([]V, 0, len(m.data))
	for _, v := range m.data {
		ret = append(ret, v)
	}
	return ret
}

// Range calls f for a snapshot of entries until f returns false.
// f may modify the map.
func (m *SyncMap[K, V]) Range(f func(key K, value V) bool) {
	m.mux.RLock()
	keys := make([]K, 0, len(m.data))
	values := make([]V, 0, len(m.data))
	for k, v := range m.data {
		keys = append(keys, k)
		values = append(values, v)
	}
	m.mux.RUnlock()
	for i := range keys {
		if !f(keys[i], values[i]) {
			return
		}
	}
}

// NewSyncMap creates an empty SyncMap.
func NewSyncMap[K comparable, V any]() *SyncMap[K, V] {
	return &SyncMap[K, V]{data: map[K]V{}}
}
